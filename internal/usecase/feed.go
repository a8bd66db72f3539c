package usecase

import (
	"context"

	"roomscribe/internal/domain"
	"roomscribe/internal/ports"
)

// openFeed subscribes to the room's push channel. A failed dial is logged and
// the room works without live updates.
func (c *SessionController) openFeed(ctx context.Context, token, roomID string) {
	if c.feed == nil {
		return
	}
	sub, err := c.feed.Subscribe(context.WithoutCancel(ctx), token, roomID)
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("live feed unavailable")
		return
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.feedSub = sub
	c.feedDone = done
	c.mu.Unlock()

	go c.consumeFeed(sub, token, roomID, done)
}

// closeFeed closes the subscription and waits for the consumer to drain.
func (c *SessionController) closeFeed() {
	c.mu.Lock()
	sub, done := c.feedSub, c.feedDone
	c.feedSub, c.feedDone = nil, nil
	c.mu.Unlock()

	if sub == nil {
		return
	}
	if err := sub.Close(); err != nil {
		c.log.Debug().Err(err).Msg("live feed closed with error")
	}
	<-done
}

func (c *SessionController) consumeFeed(sub ports.FeedSubscription, token, roomID string, done chan struct{}) {
	defer close(done)

	for event := range sub.Events() {
		c.handleFeedEvent(event, token, roomID)
	}

	c.mu.Lock()
	if c.feedSub == sub {
		c.feedSub = nil
		c.feedDone = nil
	}
	c.mu.Unlock()
	c.log.Debug().Str("room_id", roomID).Msg("live feed ended")
}

func (c *SessionController) handleFeedEvent(event ports.FeedEvent, token, roomID string) {
	switch event.Type {
	case ports.FeedMessageCreated:
		c.ensureParticipant(event.SenderUserID, token, roomID)

		c.mu.Lock()
		sender := c.displayNameLocked(event.SenderUserID)
		c.mu.Unlock()

		at := event.CreatedAt
		if at.IsZero() {
			at = c.clock.Now()
		}
		c.appendMessage(domain.Message{
			ID:        event.MessageID,
			Sender:    sender,
			Timestamp: at,
			Text:      event.Text,
		})
	case ports.FeedSpeakerChanged:
		c.ensureParticipant(event.SpeakerUserID, token, roomID)
		c.setSpeaker(event.SpeakerUserID)
	default:
		c.log.Debug().Str("type", string(event.Type)).Msg("ignoring feed event")
	}
}

func (c *SessionController) ensureParticipant(userID, token, roomID string) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	known := c.knownParticipantLocked(userID)
	c.mu.Unlock()
	if !known {
		c.refreshParticipants(context.Background(), token, roomID)
	}
}
