package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"roomscribe/internal/domain"
	"roomscribe/internal/ports"
)

type activeRecording struct {
	cancel  context.CancelFunc
	session ports.AudioSession
	token   string
	roomID  string

	// clip and readErr belong to the pump until done closes.
	clip    bytes.Buffer
	readErr error
	done    chan struct{}
}

// ToggleRecording starts a recording when idle and stops it otherwise.
// Only available in ROOM.
func (c *SessionController) ToggleRecording(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.requireView(domain.ViewRoom); err != nil {
		return err
	}

	c.mu.Lock()
	active := c.recording
	c.mu.Unlock()

	if active != nil {
		return c.stopRecording(ctx, active)
	}
	return c.startRecording(ctx)
}

func (c *SessionController) startRecording(ctx context.Context) error {
	token, user, err := c.credentials()
	if err != nil {
		return err
	}
	c.mu.Lock()
	roomID := c.room.ID
	previousSpeaker := c.speakerID
	c.mu.Unlock()

	state, err := c.api.AcquireSpeaker(ctx, token, roomID)
	if err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("speaker lock not acquired")
		c.events.Notice(domain.NoticeSpeaker, err.Error())
		return fmt.Errorf("acquire speaker: %w", err)
	}

	speaker := state.CurrentSpeakerUserID
	if speaker == "" {
		speaker = user.UserID
	}
	c.setSpeaker(speaker)
	c.startHeartbeat(token, roomID)

	recCtx, cancel := context.WithCancel(context.Background())
	session, err := c.capture.Start(recCtx, c.cfg.Audio)
	if err != nil {
		cancel()
		c.stopHeartbeat()
		c.releaseSpeaker(ctx, token, roomID)
		c.setSpeaker(previousSpeaker)
		c.log.Error().Err(err).Msg("audio capture failed to start")
		c.events.Notice(domain.NoticeRecording, err.Error())
		c.emitRecording()
		return fmt.Errorf("start capture: %w", err)
	}

	active := &activeRecording{
		cancel:  cancel,
		session: session,
		token:   token,
		roomID:  roomID,
		done:    make(chan struct{}),
	}
	go bufferClip(session, c.cfg.ChunkSize, active)

	c.mu.Lock()
	c.recording = active
	c.mu.Unlock()

	c.log.Info().Str("room_id", roomID).Msg("recording started")
	c.emitRecording()
	return nil
}

// stopRecording releases the device first, then uploads, then gives the
// lock back. Upload errors are returned only after the reset.
func (c *SessionController) stopRecording(ctx context.Context, active *activeRecording) error {
	if err := active.session.Stop(); err != nil {
		c.log.Warn().Err(err).Msg("audio capture did not stop cleanly")
	}
	<-active.done
	_ = active.session.Close()
	active.cancel()
	if active.readErr != nil {
		c.log.Warn().Err(active.readErr).Msg("audio capture read error")
	}

	uploadErr := c.uploadClip(ctx, active)

	c.releaseSpeaker(ctx, active.token, active.roomID)
	c.stopHeartbeat()

	c.mu.Lock()
	c.recording = nil
	c.mu.Unlock()
	c.setSpeaker("")
	c.emitRecording()

	if uploadErr != nil {
		c.events.Notice(domain.NoticeTranscription, uploadErr.Error())
		return fmt.Errorf("transcribe: %w", uploadErr)
	}
	c.log.Info().Str("room_id", active.roomID).Msg("recording stopped")
	return nil
}

func (c *SessionController) uploadClip(ctx context.Context, active *activeRecording) error {
	data := active.clip.Bytes()
	if len(data) == 0 {
		c.log.Debug().Msg("empty clip, skipping upload")
		return nil
	}

	result, err := c.api.Transcribe(ctx, active.token, active.roomID, ports.AudioClip{
		Data:        data,
		ContentType: active.session.ContentType(),
	})
	if err != nil {
		c.log.Warn().Err(err).Int("bytes", len(data)).Msg("transcription upload failed")
		return err
	}

	text := result.Text
	if c.filter != nil {
		filtered, err := c.filter.Apply(text)
		if err != nil {
			c.log.Warn().Err(err).Msg("substitution rules failed, keeping raw transcript")
		} else {
			text = filtered
		}
	}

	c.mu.Lock()
	sender := c.displayNameLocked(c.user.UserID)
	c.mu.Unlock()

	c.appendMessage(domain.Message{
		ID:        result.MessageID,
		Sender:    sender,
		Timestamp: c.clock.Now(),
		Text:      text,
	})
	return nil
}

// abortRecording drops the clip without uploading.
func (c *SessionController) abortRecording(ctx context.Context) {
	c.mu.Lock()
	active := c.recording
	c.recording = nil
	c.mu.Unlock()

	if active == nil {
		c.stopHeartbeat()
		return
	}

	_ = active.session.Stop()
	_ = active.session.Close()
	<-active.done
	active.cancel()

	c.releaseSpeaker(ctx, active.token, active.roomID)
	c.stopHeartbeat()
	c.setSpeaker("")
	c.emitRecording()
	c.log.Info().Str("room_id", active.roomID).Msg("recording discarded")
}

func (c *SessionController) releaseSpeaker(ctx context.Context, token, roomID string) {
	if err := c.api.ReleaseSpeaker(ctx, token, roomID); err != nil {
		c.log.Warn().Err(err).Str("room_id", roomID).Msg("speaker release failed, ignoring")
	}
}

// bufferClip reads the capture until EOF.
func bufferClip(session io.Reader, chunkSize int, active *activeRecording) {
	defer close(active.done)

	buf := make([]byte, chunkSize)
	for {
		n, err := session.Read(buf)
		if n > 0 {
			active.clip.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				active.readErr = err
			}
			return
		}
	}
}
