package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/civic-sync/internal/config"
	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerHashSHA256     = "HashSHA256"
	// headerReplayPass groups the writes of one replay pass in server logs.
	headerReplayPass = "X-Replay-Pass"
)

type httpServerAdapter struct {
	client *utils.HTTPClient
	hasher *utils.Hasher

	logger *logger.Logger
}

// submitResponse is the body the remote service answers a write with.
type submitResponse struct {
	ID string `json:"id"`
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of
// [ServerAdapter]. Every request is bounded by adapterCfg.RequestTimeout.
// When appCfg.HashKey is set, replayed payloads are signed with HMAC-SHA256
// in the HashSHA256 header.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as
// a valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, appCfg config.ClientApp, logger *logger.Logger) (ServerAdapter, error) {
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	adapter := &httpServerAdapter{
		client: utils.NewAPIClient(baseURL, adapterCfg.RequestTimeout),
		logger: logger,
	}
	if appCfg.HashKey != "" {
		adapter.hasher = utils.NewHasher(appCfg.HashKey)
	}

	return adapter, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// Submit implements [ServerAdapter].
func (h *httpServerAdapter) Submit(ctx context.Context, action models.QueuedAction) (string, error) {
	method, path, err := route(action.Type)
	if err != nil {
		return "", err
	}

	req := h.authedRequest(ctx, action.Credential).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerIdempotencyKey, action.ID).
		SetBody(action.Payload)
	if h.hasher != nil {
		req.SetHeader(headerHashSHA256, h.hasher.HashHex(action.Payload))
	}
	if passID, ok := utils.GetPassIDFromContext(ctx); ok {
		req.SetHeader(headerReplayPass, passID)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return "", mapRequestError("submit request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}

	var result submitResponse
	if body := resp.Body(); len(body) > 0 {
		if err = json.Unmarshal(body, &result); err != nil {
			// the write is confirmed even if its answer is unreadable
			logger.FromContext(ctx).Warn().Err(err).
				Str("func", "httpServerAdapter.Submit").
				Str("action_id", action.ID).
				Msg("could not decode submit response")
		}
	}

	return result.ID, nil
}

// Fetch implements [ServerAdapter].
func (h *httpServerAdapter) Fetch(ctx context.Context, path, credential string) ([]byte, error) {
	resp, err := h.authedRequest(ctx, credential).Get(path)
	if err != nil {
		return nil, mapRequestError("fetch request", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	return resp.Body(), nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context, credential string) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := bearerToken(credential); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// bearerToken accepts both bare tokens and "Bearer <token>" values.
func bearerToken(credential string) string {
	credential = strings.TrimSpace(credential)
	if token, err := utils.ParseBearerToken(credential); err == nil {
		return token
	}
	return credential
}
