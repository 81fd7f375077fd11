package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/MKhiriev/civic-sync/internal/logger"
	"github.com/MKhiriev/civic-sync/internal/utils"
	"github.com/MKhiriev/civic-sync/models"
)

// ErrPublisherClosed is returned by [WSPublisher.Publish] after Close.
var ErrPublisherClosed = errors.New("outcome publisher is closed")

const defaultWriteTimeout = 5 * time.Second

// TraceIDHeader identifies a publisher connection to the session listener.
const TraceIDHeader = "X-Trace-ID"

// WSPublisher sends outcomes to the foreground session's websocket endpoint.
// The connection is dialed lazily and re-dialed after a failure. When no
// session is listening the outcome is dropped.
type WSPublisher struct {
	url          string
	writeTimeout time.Duration
	// traceID tags the connection so the session logs every outcome of this
	// publisher under one id.
	traceID string

	mu   sync.Mutex
	conn *websocket.Conn
	// peerGone is done once the session closes conn or a control frame
	// read fails.
	peerGone context.Context
	closed   bool

	logger *logger.Logger
}

func NewWSPublisher(url string, logger *logger.Logger) *WSPublisher {
	return &WSPublisher{
		url:          url,
		writeTimeout: defaultWriteTimeout,
		traceID:      utils.NewUUIDGenerator().Generate(),
		logger:       logger,
	}
}

// Publish implements [Publisher].
func (p *WSPublisher) Publish(ctx context.Context, outcome models.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	// one re-dial covers a session that restarted since the last outcome
	for attempt := 0; attempt < 2; attempt++ {
		if p.conn != nil && p.peerGone.Err() != nil {
			logger.FromContext(ctx).Debug().
				Str("func", "WSPublisher.Publish").
				Msg("foreground session closed the connection, re-dialing")
			_ = p.conn.CloseNow()
			p.conn = nil
		}

		if p.conn == nil {
			conn, err := p.dial(ctx)
			if err != nil {
				logger.FromContext(ctx).Debug().Err(err).
					Str("func", "WSPublisher.Publish").
					Str("action_id", outcome.ActionID).
					Msg("no foreground session listening, outcome dropped")
				return nil
			}
			p.conn = conn
			// the session never sends data; reading keeps ping and close
			// frames flowing
			p.peerGone = conn.CloseRead(context.Background())
		}

		writeCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
		err := wsjson.Write(writeCtx, p.conn, outcome)
		cancel()
		if err == nil {
			return nil
		}

		logger.FromContext(ctx).Warn().Err(err).
			Str("func", "WSPublisher.Publish").
			Str("action_id", outcome.ActionID).
			Int("attempt", attempt+1).
			Msg("failed to write outcome")
		_ = p.conn.Close(websocket.StatusGoingAway, "write failed")
		p.conn = nil
	}

	return nil
}

func (p *WSPublisher) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, p.url, &websocket.DialOptions{
		HTTPHeader: http.Header{TraceIDHeader: []string{p.traceID}},
	})
	if err != nil {
		return nil, fmt.Errorf("error dialing %s: %w", p.url, err)
	}
	return conn, nil
}

// Close closes the connection, if any.
func (p *WSPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close(websocket.StatusNormalClosure, "")
	p.conn = nil
	return err
}

// Receive reads outcomes from conn and publishes each one to target until
// the peer closes the connection or ctx is done. It is the serving half of
// [WSPublisher].
func Receive(ctx context.Context, conn *websocket.Conn, target Publisher) error {
	for {
		var outcome models.Outcome
		if err := wsjson.Read(ctx, conn, &outcome); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("error reading outcome: %w", err)
		}

		if err := target.Publish(ctx, outcome); err != nil {
			logger.FromContext(ctx).Warn().Err(err).
				Str("func", "notify.Receive").
				Str("action_id", outcome.ActionID).
				Msg("failed to forward outcome")
		}
	}
}
