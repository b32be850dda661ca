package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// StreamIDRegex validates stream ID format
	StreamIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

const (
	MaxNameLength        = 120
	MaxDescriptionLength = 2000
	MaxEndpointLength    = 2048
	MaxTags              = 20
	MaxTagLength         = 40
)

// ValidateEmail validates email address
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateStreamID validates stream ID
func ValidateStreamID(streamID string) error {
	if streamID == "" {
		return fmt.Errorf("stream ID is required")
	}
	if len(streamID) > 100 {
		return fmt.Errorf("stream ID is too long (max 100 characters)")
	}
	if !StreamIDRegex.MatchString(streamID) {
		return fmt.Errorf("invalid stream ID format")
	}
	return nil
}

// ValidateStreamName validates stream name
func ValidateStreamName(name string) error {
	if err := ValidateNonEmptyString(name, "name"); err != nil {
		return err
	}
	if !utf8.ValidString(name) || strings.ContainsAny(name, "\r\n") {
		return fmt.Errorf("name contains invalid characters")
	}
	return ValidateStringLength(name, 1, MaxNameLength, "name")
}

// ValidateDescription validates a stream description
func ValidateDescription(description string) error {
	if err := ValidateNonEmptyString(description, "description"); err != nil {
		return err
	}
	return ValidateStringLength(description, 1, MaxDescriptionLength, "description")
}

// ValidateEndpointURL validates a stream endpoint. Reachability is never checked here.
func ValidateEndpointURL(urlStr string) error {
	if strings.TrimSpace(urlStr) == "" {
		return fmt.Errorf("endpoint is required")
	}
	if len(urlStr) > MaxEndpointLength {
		return fmt.Errorf("endpoint is too long (max %d characters)", MaxEndpointLength)
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid endpoint format: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("invalid endpoint scheme (must be http, https, ws, or wss)")
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint must have a host")
	}
	return nil
}

// ParseTags splits a comma-separated tag list, trimming blanks and dropping empties.
func ParseTags(raw string) ([]string, error) {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	if err := ValidateTags(tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// ValidateTags bounds the number and length of tags
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("too many tags (max %d)", MaxTags)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags must not be blank")
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return fmt.Errorf("tag %q is too long (max %d characters)", tag, MaxTagLength)
		}
	}
	return nil
}

// ValidateNonEmptyString validates that string is not empty after trimming
func ValidateNonEmptyString(s, fieldName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateStringLength validates string length
func ValidateStringLength(s string, min, max int, fieldName string) error {
	length := utf8.RuneCountInString(s)
	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if length > max {
		return fmt.Errorf("%s is too long (max %d characters)", fieldName, max)
	}
	return nil
}
