package usecase

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"roomscribe/internal/domain"
	"roomscribe/internal/ports"
)

func TestLoginMovesToLobby(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.api.EXPECT().Login(gomock.Any(), domain.Credentials{UserID: "a", Password: "b"}).
		Return(ports.AuthResult{AccessToken: "t", UserID: "a"}, nil)

	if err := h.controller.Login(context.Background(), domain.Credentials{UserID: " a ", Password: "b"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	snap := h.controller.Snapshot()
	if snap.View != domain.ViewLobby || !snap.SignedIn || snap.User.UserID != "a" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.TokenExpiresAt != nil {
		t.Fatalf("opaque token should carry no expiry")
	}
	if !slices.Equal(h.sink.views, []domain.View{domain.ViewLobby}) {
		t.Fatalf("unexpected view events: %v", h.sink.views)
	}
}

func TestLoginEmptyPasswordStaysOnAuth(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	err := h.controller.Login(context.Background(), domain.Credentials{UserID: "a"})
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	if h.controller.View() != domain.ViewAuth {
		t.Fatalf("expected AUTH, got %s", h.controller.View())
	}
	if !slices.Equal(h.sink.noticeCodes(), []domain.NoticeCode{domain.NoticeValidation}) {
		t.Fatalf("expected one validation notice, got %v", h.sink.noticeCodes())
	}
}

func TestLoginFailureEmitsAuthNotice(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.api.EXPECT().Login(gomock.Any(), gomock.Any()).Return(ports.AuthResult{}, errors.New("invalid credentials"))

	err := h.controller.Login(context.Background(), domain.Credentials{UserID: "a", Password: "b"})
	if err == nil {
		t.Fatalf("expected error")
	}
	snap := h.controller.Snapshot()
	if snap.View != domain.ViewAuth || snap.SignedIn {
		t.Fatalf("login failure must not change state: %+v", snap)
	}
	if len(h.sink.notices) != 1 || h.sink.notices[0].code != domain.NoticeAuth || h.sink.notices[0].detail != "invalid credentials" {
		t.Fatalf("unexpected notices: %+v", h.sink.notices)
	}
}

func TestSignupForwardsNickname(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	creds := domain.Credentials{UserID: "bo@example.com", Password: "pw", Nickname: "Bo"}
	h.api.EXPECT().Signup(gomock.Any(), creds).Return(ports.AuthResult{AccessToken: "t"}, nil)

	if err := h.controller.Signup(context.Background(), creds); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	snap := h.controller.Snapshot()
	if snap.View != domain.ViewLobby || snap.User.UserID != "bo@example.com" || snap.User.Nickname != "Bo" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestLoginRecordsJWTExpiry(t *testing.T) {
	t.Parallel()

	// {"alg":"HS256","typ":"JWT"}.{"sub":"a","exp":1893456000}.sig
	token := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJhIiwiZXhwIjoxODkzNDU2MDAwfQ.c2ln"
	h := newHarness(t)
	h.api.EXPECT().Login(gomock.Any(), gomock.Any()).Return(ports.AuthResult{AccessToken: token, UserID: "a"}, nil)

	if err := h.controller.Login(context.Background(), domain.Credentials{UserID: "a", Password: "b"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	snap := h.controller.Snapshot()
	if snap.TokenExpiresAt == nil || !snap.TokenExpiresAt.Equal(time.Unix(1893456000, 0)) {
		t.Fatalf("unexpected expiry: %v", snap.TokenExpiresAt)
	}
}

func TestInvalidTransitionsLeaveViewUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	checks := map[string]func() error{
		"open create": h.controller.OpenCreateRoom,
		"cancel":      h.controller.CancelCreateRoom,
		"create":      func() error { return h.controller.CreateRoom(ctx, domain.RoomDraft{Title: "x"}) },
		"join":        func() error { return h.controller.JoinRoom(ctx, "R1", "") },
		"leave":       func() error { return h.controller.LeaveRoom(ctx) },
		"toggle":      func() error { return h.controller.ToggleRecording(ctx) },
	}
	for name, call := range checks {
		if err := call(); !errors.Is(err, domain.ErrInvalidTransition) {
			t.Fatalf("%s: expected invalid transition, got %v", name, err)
		}
	}
	if h.controller.View() != domain.ViewAuth {
		t.Fatalf("view changed to %s", h.controller.View())
	}

	h.login(t)
	if err := h.controller.Login(ctx, domain.Credentials{UserID: "a", Password: "b"}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second login should be rejected, got %v", err)
	}
	if len(h.sink.notices) != 0 {
		t.Fatalf("invalid transitions should not emit notices: %+v", h.sink.notices)
	}
}

func TestCreateRoomNavigation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(t)

	if err := h.controller.OpenCreateRoom(); err != nil {
		t.Fatalf("open create failed: %v", err)
	}
	if h.controller.View() != domain.ViewCreateRoom {
		t.Fatalf("expected CREATE_ROOM, got %s", h.controller.View())
	}
	if err := h.controller.CancelCreateRoom(); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if h.controller.View() != domain.ViewLobby {
		t.Fatalf("expected LOBBY, got %s", h.controller.View())
	}
}

func TestCreateRoomRejectsShortPassword(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(t)
	_ = h.controller.OpenCreateRoom()

	err := h.controller.CreateRoom(context.Background(), domain.RoomDraft{Title: "Standup", Password: "123"})
	if !errors.Is(err, domain.ErrRoomPasswordTooShort) {
		t.Fatalf("expected short password error, got %v", err)
	}
	if h.controller.View() != domain.ViewCreateRoom {
		t.Fatalf("expected CREATE_ROOM, got %s", h.controller.View())
	}

	err = h.controller.CreateRoom(context.Background(), domain.RoomDraft{Title: "  "})
	if !errors.Is(err, domain.ErrMissingRoomTitle) {
		t.Fatalf("expected missing title error, got %v", err)
	}
	if !slices.Equal(h.sink.noticeCodes(), []domain.NoticeCode{domain.NoticeValidation, domain.NoticeValidation}) {
		t.Fatalf("unexpected notices: %v", h.sink.noticeCodes())
	}
}

func TestCreateRoomJoinsAndLoadsHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(t)
	_ = h.controller.OpenCreateRoom()

	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	gomock.InOrder(
		h.api.EXPECT().CreateRoom(gomock.Any(), testToken, domain.RoomDraft{Title: "Standup", Password: "1234"}).
			Return(ports.RoomDetails{ID: "R9", Title: "Standup", Capacity: 0}, nil),
		h.api.EXPECT().JoinRoom(gomock.Any(), testToken, "R9", "1234").Return(nil),
		h.api.EXPECT().ListParticipants(gomock.Any(), testToken, "R9").
			Return([]domain.Participant{{UserID: "ann@example.com", DisplayName: "Ann"}}, nil),
		h.api.EXPECT().ListMessages(gomock.Any(), testToken, "R9", 50, 0).Return([]ports.MessageRecord{
			{ID: "1", SenderUserID: "ann@example.com", Text: "hello", CreatedAt: at},
			{ID: "1", SenderUserID: "ann@example.com", Text: "hello again", CreatedAt: at},
			{ID: "2", SenderUserID: "ghost", Text: "boo", CreatedAt: at},
			{SenderUserID: "", Text: "no id", CreatedAt: at},
		}, nil),
	)

	if err := h.controller.CreateRoom(context.Background(), domain.RoomDraft{Title: " Standup ", Password: "1234"}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	snap := h.controller.Snapshot()
	if snap.View != domain.ViewRoom {
		t.Fatalf("expected ROOM, got %s", snap.View)
	}
	if snap.Room.ID != "R9" || snap.Room.Title != "Standup" || snap.Room.MaxParticipants != domain.DefaultMaxParticipants || snap.Room.Password != "1234" {
		t.Fatalf("unexpected room: %+v", snap.Room)
	}
	if len(snap.Messages) != 3 {
		t.Fatalf("expected deduplicated history of 3, got %+v", snap.Messages)
	}
	if snap.Messages[0].Sender != "Ann" || snap.Messages[1].Sender != "ghost" || snap.Messages[2].Sender != "Unknown" {
		t.Fatalf("unexpected senders: %+v", snap.Messages)
	}
	if snap.Messages[2].ID == "" {
		t.Fatalf("message without server id needs a local id")
	}
	if !snap.FeedConnected || len(h.feed.calls) != 1 || h.feed.calls[0] != testToken+"@R9" {
		t.Fatalf("expected feed subscription, got %v", h.feed.calls)
	}
}

func TestCreateRoomJoinFailureDoesNotCommit(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(t)
	_ = h.controller.OpenCreateRoom()

	h.api.EXPECT().CreateRoom(gomock.Any(), gomock.Any(), gomock.Any()).Return(ports.RoomDetails{ID: "R9", Title: "Standup"}, nil)
	h.api.EXPECT().JoinRoom(gomock.Any(), testToken, "R9", "").Return(errors.New("room is full"))

	if err := h.controller.CreateRoom(context.Background(), domain.RoomDraft{Title: "Standup"}); err == nil {
		t.Fatalf("expected error")
	}
	snap := h.controller.Snapshot()
	if snap.View != domain.ViewCreateRoom || snap.Room.ID != "" || snap.FeedConnected {
		t.Fatalf("partial transition committed: %+v", snap)
	}
	if len(h.sink.notices) != 1 || h.sink.notices[0].code != domain.NoticeRoomCreate || h.sink.notices[0].detail != "room is full" {
		t.Fatalf("unexpected notices: %+v", h.sink.notices)
	}
}

func TestJoinRoomUsesServerInfo(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.enterRoom(t)

	snap := h.controller.Snapshot()
	if snap.View != domain.ViewRoom || snap.Room.ID != "R1" || snap.Room.Title != "Standup" || snap.Room.MaxParticipants != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Participants) != 1 || snap.Participants[0].DisplayName != "Ann" {
		t.Fatalf("unexpected participants: %+v", snap.Participants)
	}
	if snap.Recording.IsRecording || snap.Recording.CurrentSpeaker != "" {
		t.Fatalf("unexpected recording status: %+v", snap.Recording)
	}
}

func TestJoinRoomMissingCode(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(t)

	if err := h.controller.JoinRoom(context.Background(), "  ", "pw"); !errors.Is(err, domain.ErrMissingRoomCode) {
		t.Fatalf("expected missing code, got %v", err)
	}
	if h.controller.View() != domain.ViewLobby {
		t.Fatalf("expected LOBBY, got %s", h.controller.View())
	}
}

func TestJoinRoomFailureEmitsJoinNotice(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.login(t)
	h.api.EXPECT().JoinRoom(gomock.Any(), testToken, "R1", "bad").Return(errors.New("wrong room password"))

	if err := h.controller.JoinRoom(context.Background(), "R1", "bad"); err == nil {
		t.Fatalf("expected error")
	}
	if h.controller.View() != domain.ViewLobby {
		t.Fatalf("expected LOBBY, got %s", h.controller.View())
	}
	if !slices.Equal(h.sink.noticeCodes(), []domain.NoticeCode{domain.NoticeRoomJoin}) {
		t.Fatalf("unexpected notices: %v", h.sink.noticeCodes())
	}
}

func TestJoinRoomWorksWithoutFeed(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.feed.err = errors.New("dial refused")
	h.enterRoom(t)

	snap := h.controller.Snapshot()
	if snap.View != domain.ViewRoom || snap.FeedConnected {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestLeaveRoomResetsStateAndIgnoresServerError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.enterRoom(t)
	sub := h.feed.last()

	h.api.EXPECT().LeaveRoom(gomock.Any(), testToken, "R1").Return(errors.New("boom"))
	if err := h.controller.LeaveRoom(context.Background()); err != nil {
		t.Fatalf("leave failed: %v", err)
	}

	snap := h.controller.Snapshot()
	if snap.View != domain.ViewLobby || snap.Room.ID != "" || snap.Room.MaxParticipants != 2 || len(snap.Participants) != 0 || len(snap.Messages) != 0 {
		t.Fatalf("room state not reset: %+v", snap)
	}
	if snap.FeedConnected || !sub.isClosed() {
		t.Fatalf("feed should be closed")
	}
	if len(h.sink.notices) != 0 {
		t.Fatalf("leave errors are swallowed, got %+v", h.sink.notices)
	}
}
