package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dataplug/internal/core/domain"
	"dataplug/internal/core/ports"
	"dataplug/pkg/tracing"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const probeTimeoutError = "timeout"

type probeService struct {
	timeout    time.Duration
	dialer     *websocket.Dialer
	httpClient *http.Client
	metrics    ports.Metrics
	logger     *zap.SugaredLogger
	now        func() time.Time
}

func NewProbeService(timeout time.Duration, metrics ports.Metrics, logger *zap.SugaredLogger) ports.ProbeService {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &probeService{
		timeout: timeout,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		metrics: metricsOrNop(metrics),
		logger:  logger,
		now:     time.Now,
	}
}

// Probe opens and immediately closes a connection to endpoint. It never
// returns an error: every failure is described in the result. A timeout
// reports the bound itself as latency.
func (s *probeService) Probe(ctx context.Context, endpoint string) domain.ProbeResult {
	ctx, span := tracing.TraceProbe(ctx, endpoint)
	defer span.End()

	result := domain.ProbeResult{Endpoint: endpoint}
	scheme := "invalid"

	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Host == "" {
		result.Error = "invalid endpoint URL"
	} else {
		scheme = strings.ToLower(u.Scheme)
		switch scheme {
		case "ws", "wss":
			result = s.measure(ctx, endpoint, s.dialWebSocket, u)
		case "http", "https":
			result = s.measure(ctx, endpoint, s.fetchHTTP, u)
		default:
			result.Error = fmt.Sprintf("unsupported scheme %q", u.Scheme)
		}
	}

	result.CheckedAt = s.now().UTC()
	span.SetAttributes(tracing.ReachableKey.Bool(result.Reachable))
	if result.LatencyMS != nil {
		span.SetAttributes(tracing.LatencyKey.Int64(*result.LatencyMS))
	}
	s.metrics.RecordProbe(scheme, result)
	s.logger.Debugw("probe finished",
		"endpoint", endpoint,
		"reachable", result.Reachable,
		"error", result.Error,
	)
	return result
}

func (s *probeService) measure(
	ctx context.Context,
	endpoint string,
	open func(ctx context.Context, u *url.URL) error,
	u *url.URL,
) domain.ProbeResult {
	result := domain.ProbeResult{Endpoint: endpoint}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := s.now()
	err := open(ctx, u)
	elapsed := s.now().Sub(start).Milliseconds()

	switch {
	case err == nil:
		result.Reachable = true
		result.LatencyMS = &elapsed
	case isTimeout(ctx, err):
		bound := s.timeout.Milliseconds()
		result.Error = probeTimeoutError
		result.LatencyMS = &bound
	default:
		result.Error = err.Error()
	}
	return result
}

func (s *probeService) dialWebSocket(ctx context.Context, u *url.URL) error {
	conn, resp, err := s.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return err
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()
	return nil
}

// fetchHTTP treats any HTTP response as reachable; the status is not judged.
func (s *probeService) fetchHTTP(ctx context.Context, u *url.URL) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
