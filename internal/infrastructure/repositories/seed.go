package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"

	"gopkg.in/yaml.v2"
)

// Seed is the YAML bootstrap catalog applied to an empty store.
type Seed struct {
	Streams []struct {
		ID           string    `yaml:"id"`
		Name         string    `yaml:"name"`
		Endpoint     string    `yaml:"endpoint"`
		Description  string    `yaml:"description"`
		Tags         []string  `yaml:"tags"`
		ClicksNode   int64     `yaml:"clicks_node"`
		ClicksPython int64     `yaml:"clicks_python"`
		CreatedAt    time.Time `yaml:"created_at"`
	} `yaml:"streams"`
	Accounts []struct {
		ID        string    `yaml:"id"`
		Email     string    `yaml:"email"`
		CreatedAt time.Time `yaml:"created_at"`
	} `yaml:"accounts"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// Apply inserts seed records, skipping streams that already exist.
func (s *Seed) Apply(ctx context.Context, streams ports.StreamRepository, accounts ports.AccountRepository) error {
	now := time.Now().UTC()
	for i, rec := range s.Streams {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			// keep file order as store order
			createdAt = now.Add(time.Duration(i) * time.Millisecond)
		}
		err := streams.Create(ctx, &domain.Stream{
			ID:           domain.StreamID(rec.ID),
			Name:         rec.Name,
			Endpoint:     rec.Endpoint,
			Description:  rec.Description,
			Tags:         rec.Tags,
			ClicksNode:   rec.ClicksNode,
			ClicksPython: rec.ClicksPython,
			CreatedAt:    createdAt,
		})
		if err != nil && !errors.Is(err, domain.ErrStreamExists) {
			return fmt.Errorf("seed stream %s: %w", rec.ID, err)
		}
	}

	for _, rec := range s.Accounts {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		err := accounts.Create(ctx, &domain.Account{
			ID:        domain.AccountID(rec.ID),
			Email:     rec.Email,
			CreatedAt: createdAt,
		})
		if err != nil {
			return fmt.Errorf("seed account %s: %w", rec.ID, err)
		}
	}
	return nil
}
