package connectivity

import (
	"context"
	"time"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
)

// HTTPProbe polls a health endpoint of the remote API. Any 2xx answer
// counts as online; errors and other statuses count as offline.
type HTTPProbe struct {
	client   *utils.HTTPClient
	path     string
	interval time.Duration
	logger   *logger.Logger
}

// NewHTTPProbe returns a probe of baseURL+path every interval. Each probe is
// bounded by timeout.
func NewHTTPProbe(baseURL, path string, interval, timeout time.Duration, logger *logger.Logger) *HTTPProbe {
	return &HTTPProbe{
		client:   utils.NewAPIClient(baseURL, timeout),
		path:     path,
		interval: interval,
		logger:   logger,
	}
}

// Check performs one probe.
func (p *HTTPProbe) Check(ctx context.Context) bool {
	resp, err := p.client.R().SetContext(ctx).Get(p.path)
	if err != nil {
		p.logger.Debug().Err(err).Str("func", "HTTPProbe.Check").Msg("health probe failed")
		return false
	}
	return resp.IsSuccess()
}

// Watch implements [Signal]. The first probe runs immediately.
func (p *HTTPProbe) Watch(ctx context.Context, observe func(online bool)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		observe(p.Check(ctx))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
