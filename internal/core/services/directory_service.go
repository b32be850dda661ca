package services

import (
	"context"
	"strings"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/tracing"

	"go.uber.org/zap"
)

// DirectoryOptions bounds a search.
type DirectoryOptions struct {
	ResultLimit     int
	CandidateWindow int
}

type directoryService struct {
	repo    ports.StreamRepository
	opts    DirectoryOptions
	metrics ports.Metrics
	logger  *zap.SugaredLogger
}

func NewDirectoryService(
	repo ports.StreamRepository,
	opts DirectoryOptions,
	metrics ports.Metrics,
	logger *zap.SugaredLogger,
) ports.DirectoryService {
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = 6
	}
	if opts.CandidateWindow <= 0 {
		opts.CandidateWindow = 50
	}
	return &directoryService{
		repo:    repo,
		opts:    opts,
		metrics: metricsOrNop(metrics),
		logger:  logger,
	}
}

// Search never fails: store errors are logged and yield no results.
// Matching uses the term as given; only the emptiness check trims it.
func (s *directoryService) Search(ctx context.Context, term string) []*domain.Stream {
	ctx, span := tracing.StartSpan(ctx, "directory.search")
	defer span.End()
	span.SetAttributes(tracing.SearchTermKey.String(term))

	filtered := strings.TrimSpace(term) != ""

	limit := s.opts.ResultLimit
	if filtered {
		limit = s.opts.CandidateWindow
	}

	candidates, err := s.repo.List(ctx, limit)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Errorw("directory search failed",
			"term", term,
			"error", err,
		)
		s.metrics.RecordSearch(filtered, 0)
		return []*domain.Stream{}
	}

	results := candidates
	if filtered {
		results = filterStreams(candidates, term, s.opts.ResultLimit)
	} else if len(results) > s.opts.ResultLimit {
		results = results[:s.opts.ResultLimit]
	}
	if results == nil {
		results = []*domain.Stream{}
	}

	span.SetAttributes(tracing.ResultsKey.Int(len(results)))
	s.metrics.RecordSearch(filtered, len(results))
	return results
}

func filterStreams(candidates []*domain.Stream, term string, limit int) []*domain.Stream {
	needle := strings.ToLower(term)
	matches := make([]*domain.Stream, 0, limit)
	for _, stream := range candidates {
		if !matchesTerm(stream, needle) {
			continue
		}
		matches = append(matches, stream)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

func matchesTerm(stream *domain.Stream, needle string) bool {
	if strings.Contains(strings.ToLower(stream.Name), needle) ||
		strings.Contains(strings.ToLower(stream.Description), needle) {
		return true
	}
	for _, tag := range stream.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
