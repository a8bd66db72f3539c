package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roomscribe/internal/authtoken"
	"roomscribe/internal/domain"
	"roomscribe/internal/idgen"
	"roomscribe/internal/ports"
)

var ErrNotSignedIn = errors.New("not signed in")

// Config controls session behavior.
type Config struct {
	Audio             ports.AudioConfig
	HeartbeatInterval time.Duration
	HistoryLimit      int
	ChunkSize         int
}

// SessionController drives the AUTH → LOBBY → CREATE_ROOM → ROOM flow, the
// speaker lock and the room's live feed.
type SessionController struct {
	api     ports.RoomAPI
	capture ports.AudioCapture
	feed    ports.LiveFeed
	clock   ports.Clock
	filter  ports.TranscriptFilter
	events  ports.EventSink
	log     zerolog.Logger
	cfg     Config

	// opMu serializes user operations; mu guards the fields below it.
	opMu sync.Mutex

	mu           sync.Mutex
	view         domain.View
	token        string
	tokenExpiry  *time.Time
	user         domain.User
	room         domain.RoomInfo
	participants []domain.Participant
	messages     *messageLog
	speakerID    string
	recording    *activeRecording
	heartbeat    *heartbeat
	feedSub      ports.FeedSubscription
	feedDone     chan struct{}
}

func NewSessionController(
	api ports.RoomAPI,
	capture ports.AudioCapture,
	feed ports.LiveFeed,
	clock ports.Clock,
	filter ports.TranscriptFilter,
	events ports.EventSink,
	logger zerolog.Logger,
	cfg Config,
) *SessionController {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 15 * time.Second
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 100
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &SessionController{
		api:      api,
		capture:  capture,
		feed:     feed,
		clock:    clock,
		filter:   filter,
		events:   events,
		log:      logger.With().Str("module", "session").Logger(),
		cfg:      cfg,
		view:     domain.ViewAuth,
		room:     emptyRoom(),
		messages: newMessageLog(),
	}
}

func emptyRoom() domain.RoomInfo {
	return domain.RoomInfo{MaxParticipants: domain.DefaultMaxParticipants}
}

// Login authenticates and moves AUTH → LOBBY.
func (c *SessionController) Login(ctx context.Context, creds domain.Credentials) error {
	return c.authenticate(ctx, creds, false)
}

// Signup registers and moves AUTH → LOBBY.
func (c *SessionController) Signup(ctx context.Context, creds domain.Credentials) error {
	return c.authenticate(ctx, creds, true)
}

func (c *SessionController) authenticate(ctx context.Context, creds domain.Credentials, signup bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.requireView(domain.ViewAuth); err != nil {
		return err
	}
	if err := creds.Validate(); err != nil {
		c.events.Notice(domain.NoticeValidation, err.Error())
		return err
	}
	creds.UserID = strings.TrimSpace(creds.UserID)

	call, op := c.api.Login, "login"
	if signup {
		call, op = c.api.Signup, "signup"
	}
	result, err := call(ctx, creds)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", creds.UserID).Msgf("%s failed", op)
		c.events.Notice(domain.NoticeAuth, err.Error())
		return fmt.Errorf("%s: %w", op, err)
	}

	userID := result.UserID
	if userID == "" {
		userID = creds.UserID
	}
	var expiry *time.Time
	if info, err := authtoken.Inspect(result.AccessToken); err == nil {
		expiry = info.ExpiresAt
		if info.Expired(c.clock.Now()) {
			c.log.Warn().Msg("access token is already expired")
		}
	}

	c.mu.Lock()
	c.token = result.AccessToken
	c.tokenExpiry = expiry
	c.user = domain.User{UserID: userID, Nickname: strings.TrimSpace(creds.Nickname)}
	c.mu.Unlock()

	c.log.Info().Str("user_id", userID).Msgf("%s succeeded", op)
	c.setView(domain.ViewLobby)
	return nil
}

// OpenCreateRoom moves LOBBY → CREATE_ROOM.
func (c *SessionController) OpenCreateRoom() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.requireView(domain.ViewLobby); err != nil {
		return err
	}
	c.setView(domain.ViewCreateRoom)
	return nil
}

// CancelCreateRoom moves CREATE_ROOM → LOBBY.
func (c *SessionController) CancelCreateRoom() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.requireView(domain.ViewCreateRoom); err != nil {
		return err
	}
	c.setView(domain.ViewLobby)
	return nil
}

// Shutdown discards any recording and closes the feed. The view is kept.
func (c *SessionController) Shutdown(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.abortRecording(ctx)
	c.closeFeed()
	c.log.Debug().Msg("session shut down")
}

// Snapshot copies the session state.
func (c *SessionController) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	participants := make([]domain.Participant, len(c.participants))
	copy(participants, c.participants)

	var expiry *time.Time
	if c.tokenExpiry != nil {
		t := *c.tokenExpiry
		expiry = &t
	}

	return domain.Snapshot{
		View:           c.view,
		SignedIn:       c.token != "",
		TokenExpiresAt: expiry,
		User:           c.user,
		Room:           c.room,
		Participants:   participants,
		Messages:       c.messages.Snapshot(),
		Recording:      c.recordingStatusLocked(),
		FeedConnected:  c.feedSub != nil,
	}
}

func (c *SessionController) View() domain.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *SessionController) requireView(want domain.View) error {
	c.mu.Lock()
	current := c.view
	c.mu.Unlock()
	if current != want {
		return fmt.Errorf("%w: on %s, need %s", domain.ErrInvalidTransition, current, want)
	}
	return nil
}

func (c *SessionController) setView(view domain.View) {
	c.mu.Lock()
	previous := c.view
	c.view = view
	c.mu.Unlock()

	c.log.Debug().Str("from", string(previous)).Str("to", string(view)).Msg("view changed")
	c.events.ViewChanged(view)
}

func (c *SessionController) credentials() (token string, user domain.User, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", domain.User{}, ErrNotSignedIn
	}
	return c.token, c.user, nil
}

// displayNameLocked resolves a user id against the participant list.
func (c *SessionController) displayNameLocked(userID string) string {
	if userID == "" {
		return "Unknown"
	}
	for _, p := range c.participants {
		if p.UserID == userID && p.DisplayName != "" {
			return p.DisplayName
		}
	}
	return userID
}

func (c *SessionController) knownParticipantLocked(userID string) bool {
	for _, p := range c.participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func (c *SessionController) recordingStatusLocked() domain.RecordingStatus {
	status := domain.RecordingStatus{
		IsRecording:     c.recording != nil,
		HeartbeatActive: c.heartbeat != nil,
	}
	if c.speakerID != "" {
		status.CurrentSpeaker = c.displayNameLocked(c.speakerID)
	}
	return status
}

// appendMessageLocked assigns a local id when the server sent none. A
// message that cannot be numbered is dropped.
func (c *SessionController) appendMessageLocked(message domain.Message) (domain.Message, bool) {
	if message.ID == "" {
		at := message.Timestamp
		if at.IsZero() {
			at = c.clock.Now()
		}
		id, err := idgen.NewMessageID(at)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping message without id")
			return message, false
		}
		message.ID = id
	}
	return message, c.messages.Append(message)
}

func (c *SessionController) appendMessage(message domain.Message) {
	c.mu.Lock()
	stored, added := c.appendMessageLocked(message)
	c.mu.Unlock()

	if added {
		c.events.MessageAppended(stored)
	}
}

func (c *SessionController) setSpeaker(userID string) {
	c.mu.Lock()
	c.speakerID = userID
	name := ""
	if userID != "" {
		name = c.displayNameLocked(userID)
	}
	c.mu.Unlock()

	c.events.SpeakerChanged(name)
}

func (c *SessionController) emitRecording() {
	c.mu.Lock()
	status := c.recordingStatusLocked()
	c.mu.Unlock()

	c.events.RecordingChanged(status)
}
