package ports

//go:generate mockgen -destination=mocks/mock_room_api.go -package=mocks roomscribe/internal/ports RoomAPI

import (
	"context"
	"io"
	"time"

	"roomscribe/internal/domain"
)

// AuthResult is the outcome of login or signup.
type AuthResult struct {
	AccessToken string
	UserID      string
}

// RoomDetails is the server's view of a room.
type RoomDetails struct {
	ID       string
	Title    string
	Capacity int
}

// MessageRecord is one history entry before sender names are resolved.
type MessageRecord struct {
	ID           string
	SenderUserID string
	Text         string
	CreatedAt    time.Time
}

// SpeakerState reports who holds the speaker lock.
type SpeakerState struct {
	CurrentSpeakerUserID string
}

// AudioClip is a finished recording ready for upload.
type AudioClip struct {
	Data        []byte
	ContentType string
	FileName    string
}

// Transcription is the STT endpoint's answer.
type Transcription struct {
	MessageID string
	Text      string
}

// RoomAPI is the remote room service.
type RoomAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (AuthResult, error)
	Signup(ctx context.Context, creds domain.Credentials) (AuthResult, error)
	CreateRoom(ctx context.Context, token string, draft domain.RoomDraft) (RoomDetails, error)
	JoinRoom(ctx context.Context, token, roomID, password string) error
	LeaveRoom(ctx context.Context, token, roomID string) error
	GetRoom(ctx context.Context, token, roomID string) (RoomDetails, error)
	ListParticipants(ctx context.Context, token, roomID string) ([]domain.Participant, error)
	ListMessages(ctx context.Context, token, roomID string, limit, offset int) ([]MessageRecord, error)
	AcquireSpeaker(ctx context.Context, token, roomID string) (SpeakerState, error)
	HeartbeatSpeaker(ctx context.Context, token, roomID string) (SpeakerState, error)
	ReleaseSpeaker(ctx context.Context, token, roomID string) error
	Transcribe(ctx context.Context, token, roomID string, clip AudioClip) (Transcription, error)
}

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
	Container   string
}

// AudioSession is a live capture session. Stop releases the device.
type AudioSession interface {
	io.ReadCloser
	Stop() error
	ContentType() string
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Ticker is a stoppable periodic timer.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock abstracts wall time and timers.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// FeedEventType is the push channel discriminator.
type FeedEventType string

const (
	FeedMessageCreated FeedEventType = "message.created"
	FeedSpeakerChanged FeedEventType = "speaker.changed"
)

// FeedEvent is a decoded push channel event.
type FeedEvent struct {
	Type FeedEventType

	MessageID    string
	SenderUserID string
	Text         string
	CreatedAt    time.Time

	// SpeakerUserID is empty when the lock was released.
	SpeakerUserID string
}

// FeedSubscription is an open push channel. Events closes when the channel ends.
type FeedSubscription interface {
	Events() <-chan FeedEvent
	Close() error
}

// LiveFeed opens push channels for a room.
type LiveFeed interface {
	Subscribe(ctx context.Context, token, roomID string) (FeedSubscription, error)
}

// TranscriptFilter rewrites transcript text before it is shown.
type TranscriptFilter interface {
	Apply(text string) (string, error)
}

// EventSink emits session state and notices to the presenter.
type EventSink interface {
	ViewChanged(view domain.View)
	Notice(code domain.NoticeCode, detail string)
	MessageAppended(message domain.Message)
	ParticipantsChanged(participants []domain.Participant)
	SpeakerChanged(name string)
	RecordingChanged(status domain.RecordingStatus)
}
