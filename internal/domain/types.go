package domain

import "time"

// View is the screen the session is currently on.
type View string

const (
	ViewAuth       View = "AUTH"
	ViewLobby      View = "LOBBY"
	ViewCreateRoom View = "CREATE_ROOM"
	ViewRoom       View = "ROOM"
)

// NoticeCode classifies user-facing notices.
type NoticeCode string

const (
	NoticeStartup       NoticeCode = "startup"
	NoticeValidation    NoticeCode = "validation"
	NoticeAuth          NoticeCode = "auth"
	NoticeRoomCreate    NoticeCode = "room_create"
	NoticeRoomJoin      NoticeCode = "room_join"
	NoticeSpeaker       NoticeCode = "speaker"
	NoticeRecording     NoticeCode = "recording"
	NoticeTranscription NoticeCode = "transcription"
)

// DefaultMaxParticipants is the room capacity used until the server reports one.
const DefaultMaxParticipants = 2

// User is the signed-in account. The password never lives here.
type User struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname,omitempty"`
}

// RoomInfo describes the room the session is in.
type RoomInfo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Password        string `json:"-"`
	MaxParticipants int    `json:"maxParticipants"`
}

type Participant struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Message is one transcript line shown in the room.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// RecordingStatus mirrors the local speaker session.
type RecordingStatus struct {
	IsRecording     bool   `json:"isRecording"`
	CurrentSpeaker  string `json:"currentSpeaker,omitempty"`
	HeartbeatActive bool   `json:"heartbeatActive"`
}

// Snapshot is a read-only copy of the session for presenters.
type Snapshot struct {
	View           View            `json:"view"`
	SignedIn       bool            `json:"signedIn"`
	TokenExpiresAt *time.Time      `json:"tokenExpiresAt,omitempty"`
	User           User            `json:"user"`
	Room           RoomInfo        `json:"room"`
	Participants   []Participant   `json:"participants"`
	Messages       []Message       `json:"messages"`
	Recording      RecordingStatus `json:"recording"`
	FeedConnected  bool            `json:"feedConnected"`
}
