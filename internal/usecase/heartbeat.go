package usecase

import (
	"context"

	"roomscribe/internal/ports"
)

type heartbeat struct {
	ticker ports.Ticker
	cancel context.CancelFunc
	done   chan struct{}
}

// startHeartbeat reports false when a heartbeat is already running.
func (c *SessionController) startHeartbeat(token, roomID string) bool {
	c.mu.Lock()
	if c.heartbeat != nil {
		c.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	hb := &heartbeat{
		ticker: c.clock.NewTicker(c.cfg.HeartbeatInterval),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.heartbeat = hb
	c.mu.Unlock()

	go c.runHeartbeat(ctx, hb, token, roomID)
	c.log.Debug().Dur("interval", c.cfg.HeartbeatInterval).Msg("speaker heartbeat started")
	return true
}

// runHeartbeat renews the lock on every tick. Failures are logged and the
// next tick tries again.
func (c *SessionController) runHeartbeat(ctx context.Context, hb *heartbeat, token, roomID string) {
	defer close(hb.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hb.ticker.C():
			state, err := c.api.HeartbeatSpeaker(ctx, token, roomID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.log.Warn().Err(err).Str("room_id", roomID).Msg("speaker heartbeat failed")
				continue
			}
			if state.CurrentSpeakerUserID != "" {
				c.setSpeaker(state.CurrentSpeakerUserID)
			}
		}
	}
}

func (c *SessionController) stopHeartbeat() {
	c.mu.Lock()
	hb := c.heartbeat
	c.heartbeat = nil
	c.mu.Unlock()

	if hb == nil {
		return
	}
	hb.cancel()
	hb.ticker.Stop()
	<-hb.done
	c.log.Debug().Msg("speaker heartbeat stopped")
}
