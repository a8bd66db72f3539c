package usecase

import (
	"context"
	"fmt"
	"strings"

	"roomscribe/internal/domain"
	"roomscribe/internal/ports"
)

// roomContents is everything fetched before a room is committed.
type roomContents struct {
	info         domain.RoomInfo
	participants []domain.Participant
	history      []ports.MessageRecord
}

// CreateRoom creates, joins and loads a room, moving CREATE_ROOM → ROOM.
func (c *SessionController) CreateRoom(ctx context.Context, draft domain.RoomDraft) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.requireView(domain.ViewCreateRoom); err != nil {
		return err
	}
	if err := draft.Validate(); err != nil {
		c.events.Notice(domain.NoticeValidation, err.Error())
		return err
	}
	token, _, err := c.credentials()
	if err != nil {
		return err
	}
	draft.Title = strings.TrimSpace(draft.Title)

	fail := func(step string, err error) error {
		c.log.Warn().Err(err).Str("step", step).Msg("create room failed")
		c.events.Notice(domain.NoticeRoomCreate, err.Error())
		return fmt.Errorf("create room: %s: %w", step, err)
	}

	created, err := c.api.CreateRoom(ctx, token, draft)
	if err != nil {
		return fail("create", err)
	}
	if err := c.api.JoinRoom(ctx, token, created.ID, draft.Password); err != nil {
		return fail("join", err)
	}

	title := created.Title
	if title == "" {
		title = draft.Title
	}
	contents := roomContents{info: domain.RoomInfo{
		ID:              created.ID,
		Title:           title,
		Password:        draft.Password,
		MaxParticipants: capacityOr(created.Capacity),
	}}
	if err := c.loadRoomContents(ctx, token, &contents); err != nil {
		return fail("load", err)
	}

	c.enterRoom(ctx, token, contents)
	return nil
}

// JoinRoom joins an existing room by code, moving LOBBY → ROOM.
func (c *SessionController) JoinRoom(ctx context.Context, code, password string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.requireView(domain.ViewLobby); err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		c.events.Notice(domain.NoticeValidation, domain.ErrMissingRoomCode.Error())
		return domain.ErrMissingRoomCode
	}
	token, _, err := c.credentials()
	if err != nil {
		return err
	}

	fail := func(step string, err error) error {
		c.log.Warn().Err(err).Str("room_id", code).Str("step", step).Msg("join room failed")
		c.events.Notice(domain.NoticeRoomJoin, err.Error())
		return fmt.Errorf("join room: %s: %w", step, err)
	}

	if err := c.api.JoinRoom(ctx, token, code, password); err != nil {
		return fail("join", err)
	}
	details, err := c.api.GetRoom(ctx, token, code)
	if err != nil {
		return fail("info", err)
	}

	id := details.ID
	if id == "" {
		id = code
	}
	contents := roomContents{info: domain.RoomInfo{
		ID:              id,
		Title:           details.Title,
		Password:        password,
		MaxParticipants: capacityOr(details.Capacity),
	}}
	if err := c.loadRoomContents(ctx, token, &contents); err != nil {
		return fail("load", err)
	}

	c.enterRoom(ctx, token, contents)
	return nil
}

// LeaveRoom moves ROOM → LOBBY. The server call is best effort.
func (c *SessionController) LeaveRoom(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.requireView(domain.ViewRoom); err != nil {
		return err
	}

	c.abortRecording(ctx)
	c.closeFeed()

	c.mu.Lock()
	token := c.token
	roomID := c.room.ID
	c.mu.Unlock()

	if err := c.api.LeaveRoom(ctx, token, roomID); err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("leave room failed, ignoring")
	}

	c.mu.Lock()
	c.room = emptyRoom()
	c.participants = nil
	c.messages.Reset()
	c.speakerID = ""
	c.mu.Unlock()

	c.log.Info().Str("room_id", roomID).Msg("left room")
	c.events.ParticipantsChanged(nil)
	c.events.SpeakerChanged("")
	c.setView(domain.ViewLobby)
	return nil
}

func (c *SessionController) loadRoomContents(ctx context.Context, token string, contents *roomContents) error {
	participants, err := c.api.ListParticipants(ctx, token, contents.info.ID)
	if err != nil {
		return err
	}
	history, err := c.api.ListMessages(ctx, token, contents.info.ID, c.cfg.HistoryLimit, 0)
	if err != nil {
		return err
	}
	contents.participants = participants
	contents.history = history
	return nil
}

// enterRoom commits fetched room state, opens the feed and switches view.
func (c *SessionController) enterRoom(ctx context.Context, token string, contents roomContents) {
	c.mu.Lock()
	c.room = contents.info
	c.participants = contents.participants
	c.speakerID = ""
	c.messages.Reset()
	for _, record := range contents.history {
		c.appendMessageLocked(domain.Message{
			ID:        record.ID,
			Sender:    c.displayNameLocked(record.SenderUserID),
			Timestamp: record.CreatedAt,
			Text:      record.Text,
		})
	}
	participants := append([]domain.Participant(nil), c.participants...)
	loaded := c.messages.Len()
	c.mu.Unlock()

	c.log.Info().
		Str("room_id", contents.info.ID).
		Int("participants", len(participants)).
		Int("messages", loaded).
		Msg("entered room")

	c.events.ParticipantsChanged(participants)
	c.events.SpeakerChanged("")
	c.openFeed(ctx, token, contents.info.ID)
	c.setView(domain.ViewRoom)
}

// refreshParticipants reloads the list when a feed event names a stranger.
func (c *SessionController) refreshParticipants(ctx context.Context, token, roomID string) {
	participants, err := c.api.ListParticipants(ctx, token, roomID)
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("participant refresh failed")
		return
	}

	c.mu.Lock()
	if c.room.ID != roomID {
		c.mu.Unlock()
		return
	}
	c.participants = participants
	out := append([]domain.Participant(nil), participants...)
	c.mu.Unlock()

	c.events.ParticipantsChanged(out)
}

func capacityOr(capacity int) int {
	if capacity > 0 {
		return capacity
	}
	return domain.DefaultMaxParticipants
}
