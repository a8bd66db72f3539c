package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"roomscribe/internal/ports"
	"roomscribe/internal/wire"
)

// Config controls the push channel client.
type Config struct {
	BaseURL          string
	HandshakeTimeout time.Duration
}

// Client implements ports.LiveFeed over a WebSocket.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	log    zerolog.Logger
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "ws://localhost:8000/ws"
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		log:    logger.With().Str("module", "livefeed").Logger(),
	}
}

// Subscribe dials {base}/rooms/{roomID}?token=... The subscription ends when
// the server closes, Close is called, or ctx is cancelled. It never redials.
func (c *Client) Subscribe(ctx context.Context, token, roomID string) (ports.FeedSubscription, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, errors.New("room id is required")
	}
	feedURL, err := buildFeedURL(c.cfg.BaseURL, roomID, token)
	if err != nil {
		return nil, err
	}

	conn, _, err := c.dialer.DialContext(ctx, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to room feed: %w", err)
	}

	sub := &subscription{
		conn:    conn,
		events:  make(chan ports.FeedEvent, 64),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		log:     c.log.With().Str("room_id", roomID).Logger(),
	}

	sub.wg.Go(sub.readLoop)
	go func() {
		sub.wg.Wait()
		close(sub.events)
		close(sub.done)
		_ = conn.Close()
		sub.log.Debug().Msg("feed closed")
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	sub.log.Debug().Msg("feed connected")
	return sub, nil
}

type subscription struct {
	conn *websocket.Conn

	events  chan ports.FeedEvent
	closing chan struct{}
	done    chan struct{}

	wg conc.WaitGroup

	errMu sync.Mutex
	err   error

	closeOnce sync.Once
	log       zerolog.Logger
}

func (s *subscription) Events() <-chan ports.FeedEvent {
	return s.events
}

// Close is idempotent and waits for the read loop to exit.
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.connClose()
	})
	<-s.done
	return s.waitErr()
}

func (s *subscription) connClose() {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = s.conn.Close()
}

func (s *subscription) waitErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *subscription) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}
	select {
	case <-s.closing:
		return
	default:
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *subscription) readLoop() {
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.setErr(fmt.Errorf("failed to read feed event: %w", err))
			return
		}

		event, ok := decodeFrame(payload)
		if !ok {
			s.log.Debug().Int("bytes", len(payload)).Msg("dropping feed frame")
			continue
		}
		select {
		case s.events <- event:
		case <-s.closing:
			return
		}
	}
}

// decodeFrame turns one envelope into an event. Malformed frames and unknown
// types report false.
func decodeFrame(payload []byte) (ports.FeedEvent, bool) {
	var env wire.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ports.FeedEvent{}, false
	}

	switch ports.FeedEventType(env.Type) {
	case ports.FeedMessageCreated:
		var body wire.MessageCreated
		if err := json.Unmarshal(env.Payload, &body); err != nil {
			return ports.FeedEvent{}, false
		}
		created := wire.ParseTime(body.CreatedAt)
		if created.IsZero() {
			created = wire.ParseTime(env.TS)
		}
		return ports.FeedEvent{
			Type:         ports.FeedMessageCreated,
			MessageID:    body.MessageID.String(),
			SenderUserID: body.SenderUserID.String(),
			Text:         body.Text,
			CreatedAt:    created,
		}, true
	case ports.FeedSpeakerChanged:
		var body wire.SpeakerChanged
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &body); err != nil {
				return ports.FeedEvent{}, false
			}
		}
		return ports.FeedEvent{
			Type:          ports.FeedSpeakerChanged,
			SpeakerUserID: body.CurrentSpeakerUserID.String(),
		}, true
	default:
		return ports.FeedEvent{}, false
	}
}

func buildFeedURL(base, roomID, token string) (string, error) {
	base = strings.TrimSpace(base)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	feedURL, err := url.Parse(base + "/rooms/" + url.PathEscape(roomID))
	if err != nil {
		return "", fmt.Errorf("invalid feed base URL: %w", err)
	}
	if feedURL.Scheme != "ws" && feedURL.Scheme != "wss" {
		return "", fmt.Errorf("invalid feed base URL scheme %q", feedURL.Scheme)
	}
	query := feedURL.Query()
	query.Set("token", token)
	feedURL.RawQuery = query.Encode()
	return feedURL.String(), nil
}
