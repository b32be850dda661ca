package ports

import (
	"context"

	"dataplug/internal/core/domain"
)

type DirectoryService interface {
	Search(ctx context.Context, term string) []*domain.Stream
}

type CatalogService interface {
	AddStream(ctx context.Context, input domain.NewStreamInput) (*domain.Stream, error)
	GetStream(ctx context.Context, id domain.StreamID) (*domain.Stream, error)
	Snippet(ctx context.Context, id domain.StreamID, language string) (string, error)
}

type UsageService interface {
	Increment(ctx context.Context, id domain.StreamID, bucket string) error
}

type ProbeService interface {
	Probe(ctx context.Context, endpoint string) domain.ProbeResult
}

type AdminService interface {
	ListAccounts(ctx context.Context, caller *domain.Identity) ([]*domain.Account, error)
	ListStreamStats(ctx context.Context, caller *domain.Identity) ([]domain.StreamStats, error)
	Summary(ctx context.Context, caller *domain.Identity) (*domain.UsageSummary, error)
	DuplicateReport(ctx context.Context) (*domain.DuplicateReport, error)
}

// UsageRecorder accepts audit events without blocking the caller.
type UsageRecorder interface {
	Record(event *domain.UsageEvent)
}

// CatalogListener is notified after a stream is added to the catalog.
type CatalogListener interface {
	StreamAdded(ctx context.Context, stream *domain.Stream)
}

// Metrics receives service-level observations.
type Metrics interface {
	RecordClick(bucket string, outcome string)
	RecordSearch(filtered bool, results int)
	RecordProbe(scheme string, result domain.ProbeResult)
	RecordUsageEvents(written, failed int)
	RecordStreamAdded()
}
