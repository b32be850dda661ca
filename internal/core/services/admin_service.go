package services

import (
	"context"
	"sort"
	"strings"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	apperrors "dataplug/pkg/errors"

	"go.uber.org/zap"
)

// AdminOptions carries the admin allow-list and the elevated credential
// used to enumerate accounts.
type AdminOptions struct {
	AllowedEmails []string
	ServiceKey    string
}

type adminService struct {
	streams  ports.StreamRepository
	accounts ports.AccountRepository
	allowed  map[string]struct{}
	hasKey   bool
	logger   *zap.SugaredLogger
}

func NewAdminService(
	streams ports.StreamRepository,
	accounts ports.AccountRepository,
	opts AdminOptions,
	logger *zap.SugaredLogger,
) ports.AdminService {
	allowed := make(map[string]struct{}, len(opts.AllowedEmails))
	for _, email := range opts.AllowedEmails {
		allowed[email] = struct{}{}
	}
	return &adminService{
		streams:  streams,
		accounts: accounts,
		allowed:  allowed,
		hasKey:   opts.ServiceKey != "",
		logger:   logger,
	}
}

// authorize admits only callers whose email is an exact, case-sensitive
// member of the allow-list.
func (s *adminService) authorize(caller *domain.Identity) error {
	if caller == nil {
		return apperrors.NewUnauthorizedError("authentication required").WithCause(domain.ErrNotAuthenticated)
	}
	if _, ok := s.allowed[caller.Email]; !ok {
		s.logger.Warnw("admin access denied",
			"account_id", caller.AccountID,
			"email", caller.Email,
		)
		return apperrors.NewForbiddenError("admin access required").WithCause(domain.ErrNotAdmin)
	}
	return nil
}

func (s *adminService) requireServiceKey() error {
	if !s.hasKey {
		s.logger.Errorw("admin account listing requested without a service key")
		return apperrors.NewConfigurationError("service credential is not configured").
			WithCause(domain.ErrMissingCredential)
	}
	return nil
}

func (s *adminService) ListAccounts(ctx context.Context, caller *domain.Identity) ([]*domain.Account, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if err := s.requireServiceKey(); err != nil {
		return nil, err
	}

	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list accounts", err)
	}
	if accounts == nil {
		accounts = []*domain.Account{}
	}
	return accounts, nil
}

// ListStreamStats returns per-stream totals, highest first. Ties fall back
// to name and then id so the order is deterministic.
func (s *adminService) ListStreamStats(ctx context.Context, caller *domain.Identity) ([]domain.StreamStats, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}

	streams, err := s.streams.List(ctx, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list streams", err)
	}

	stats := make([]domain.StreamStats, 0, len(streams))
	for _, st := range streams {
		stats = append(stats, domain.StreamStats{
			ID:           st.ID,
			Name:         st.Name,
			ClicksNode:   st.ClicksNode,
			ClicksPython: st.ClicksPython,
			Total:        st.TotalClicks(),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Total != stats[j].Total {
			return stats[i].Total > stats[j].Total
		}
		if stats[i].Name != stats[j].Name {
			return stats[i].Name < stats[j].Name
		}
		return stats[i].ID < stats[j].ID
	})
	return stats, nil
}

func (s *adminService) Summary(ctx context.Context, caller *domain.Identity) (*domain.UsageSummary, error) {
	if err := s.authorize(caller); err != nil {
		return nil, err
	}
	if err := s.requireServiceKey(); err != nil {
		return nil, err
	}

	streams, err := s.streams.List(ctx, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list streams", err)
	}
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list accounts", err)
	}

	summary := &domain.UsageSummary{
		Accounts: len(accounts),
		Streams:  len(streams),
	}
	for _, st := range streams {
		summary.ClicksNode += st.ClicksNode
		summary.ClicksPython += st.ClicksPython
	}
	summary.Total = summary.ClicksNode + summary.ClicksPython
	return summary, nil
}

// DuplicateReport groups streams by trimmed, lower-cased name, endpoint and
// the pair of both, keeping only groups with more than one member.
func (s *adminService) DuplicateReport(ctx context.Context) (*domain.DuplicateReport, error) {
	streams, err := s.streams.List(ctx, 0)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list streams", err)
	}

	byName := groupStreams(streams, func(st *domain.Stream) string {
		return normalizeKey(st.Name)
	})
	byEndpoint := groupStreams(streams, func(st *domain.Stream) string {
		return normalizeKey(st.Endpoint)
	})
	byBoth := groupStreams(streams, func(st *domain.Stream) string {
		return normalizeKey(st.Name) + " | " + normalizeKey(st.Endpoint)
	})

	return &domain.DuplicateReport{
		TotalStreams:         len(streams),
		ByName:               byName,
		ByEndpoint:           byEndpoint,
		ByNameAndEndpoint:    byBoth,
		DuplicateNames:       len(byName),
		DuplicateEndpoints:   len(byEndpoint),
		DuplicateCombination: len(byBoth),
	}, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func groupStreams(streams []*domain.Stream, key func(*domain.Stream) string) []domain.DuplicateGroup {
	groups := make(map[string][]*domain.Stream)
	for _, st := range streams {
		k := key(st)
		groups[k] = append(groups[k], st)
	}

	out := make([]domain.DuplicateGroup, 0)
	for k, members := range groups {
		if len(members) > 1 {
			out = append(out, domain.DuplicateGroup{Key: k, Streams: members})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
