package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"roomscribe/internal/domain"
	"roomscribe/internal/ports"
	"roomscribe/internal/ports/mocks"
)

type harness struct {
	api        *mocks.MockRoomAPI
	capture    *fakeCapture
	feed       *fakeFeed
	clock      *manualClock
	sink       *recordingSink
	filter     *fakeFilter
	controller *SessionController
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	h := &harness{
		api:     mocks.NewMockRoomAPI(ctrl),
		capture: &fakeCapture{},
		feed:    &fakeFeed{},
		clock:   newManualClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		sink:    &recordingSink{},
		filter:  &fakeFilter{},
	}
	h.controller = NewSessionController(h.api, h.capture, h.feed, h.clock, h.filter, h.sink, zerolog.Nop(), Config{
		HeartbeatInterval: time.Second,
		HistoryLimit:      50,
		ChunkSize:         512,
	})
	// Registered after the gomock controller so it runs before Finish.
	t.Cleanup(func() { h.controller.Shutdown(context.Background()) })
	return h
}

const testToken = "tok-ann"

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.api.EXPECT().Login(gomock.Any(), gomock.Any()).
		Return(ports.AuthResult{AccessToken: testToken, UserID: "ann@example.com"}, nil)
	if err := h.controller.Login(context.Background(), domain.Credentials{UserID: "ann@example.com", Password: "pw"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
}

// enterRoom logs in and joins room R1 whose only participant is ann.
func (h *harness) enterRoom(t *testing.T) {
	t.Helper()
	h.login(t)

	h.api.EXPECT().JoinRoom(gomock.Any(), testToken, "R1", "").Return(nil)
	h.api.EXPECT().GetRoom(gomock.Any(), testToken, "R1").
		Return(ports.RoomDetails{ID: "R1", Title: "Standup", Capacity: 2}, nil)
	h.api.EXPECT().ListParticipants(gomock.Any(), testToken, "R1").
		Return([]domain.Participant{{UserID: "ann@example.com", DisplayName: "Ann"}}, nil)
	h.api.EXPECT().ListMessages(gomock.Any(), testToken, "R1", 50, 0).Return(nil, nil)

	if err := h.controller.JoinRoom(context.Background(), "R1", ""); err != nil {
		t.Fatalf("join failed: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeAudioSession yields its chunks, then blocks until stopped or closed.
type fakeAudioSession struct {
	mu      sync.Mutex
	chunks  [][]byte
	stopped bool
	closed  bool
	stopErr error
	release chan struct{}
	once    sync.Once
}

func newFakeAudioSession(chunks ...string) *fakeAudioSession {
	s := &fakeAudioSession{release: make(chan struct{})}
	for _, c := range chunks {
		s.chunks = append(s.chunks, []byte(c))
	}
	return s
}

func (s *fakeAudioSession) Read(p []byte) (int, error) {
	s.mu.Lock()
	if len(s.chunks) > 0 {
		n := copy(p, s.chunks[0])
		s.chunks = s.chunks[1:]
		s.mu.Unlock()
		return n, nil
	}
	s.mu.Unlock()

	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed && !s.stopped {
		return 0, os.ErrClosed
	}
	return 0, io.EOF
}

func (s *fakeAudioSession) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.once.Do(func() { close(s.release) })
	return s.stopErr
}

func (s *fakeAudioSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.once.Do(func() { close(s.release) })
	return nil
}

func (s *fakeAudioSession) ContentType() string { return "audio/webm" }

func (s *fakeAudioSession) state() (stopped, closed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped, s.closed
}

type fakeCapture struct {
	mu       sync.Mutex
	sessions []*fakeAudioSession
	err      error
	starts   int
}

func (c *fakeCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.err != nil {
		return nil, c.err
	}
	if len(c.sessions) == 0 {
		return nil, errors.New("no fake audio session")
	}
	s := c.sessions[0]
	c.sessions = c.sessions[1:]
	return s, nil
}

func (c *fakeCapture) startCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.starts
}

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *manualTicker) C() <-chan time.Time { return t.ch }

func (t *manualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *manualTicker) isStopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type manualClock struct {
	mu        sync.Mutex
	now       time.Time
	tickers   []*manualTicker
	intervals []time.Duration
}

func newManualClock(now time.Time) *manualClock {
	return &manualClock{now: now}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{ch: make(chan time.Time)}
	c.tickers = append(c.tickers, t)
	c.intervals = append(c.intervals, d)
	return t
}

func (c *manualClock) tickerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *manualClock) lastTicker() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// tick blocks until the heartbeat loop takes the tick.
func (c *manualClock) tick(t *testing.T) {
	t.Helper()
	ticker := c.lastTicker()
	if ticker == nil {
		t.Fatalf("no ticker to tick")
	}
	select {
	case ticker.ch <- c.Now():
	case <-time.After(2 * time.Second):
		t.Fatalf("heartbeat loop did not take the tick")
	}
}

type fakeSubscription struct {
	events chan ports.FeedEvent
	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func (s *fakeSubscription) Events() <-chan ports.FeedEvent { return s.events }

func (s *fakeSubscription) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.events)
	})
	return nil
}

func (s *fakeSubscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeFeed struct {
	mu    sync.Mutex
	subs  []*fakeSubscription
	calls []string
	err   error
}

func (f *fakeFeed) Subscribe(ctx context.Context, token, roomID string) (ports.FeedSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, token+"@"+roomID)
	if f.err != nil {
		return nil, f.err
	}
	sub := &fakeSubscription{events: make(chan ports.FeedEvent)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *fakeFeed) last() *fakeSubscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return nil
	}
	return f.subs[len(f.subs)-1]
}

func (f *fakeFeed) push(t *testing.T, event ports.FeedEvent) {
	t.Helper()
	sub := f.last()
	if sub == nil {
		t.Fatalf("no feed subscription")
	}
	select {
	case sub.events <- event:
	case <-time.After(2 * time.Second):
		t.Fatalf("feed consumer did not take the event")
	}
}

type fakeFilter struct {
	mu     sync.Mutex
	prefix string
	err    error
	inputs []string
}

func (f *fakeFilter) Apply(text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, text)
	if f.err != nil {
		return "", f.err
	}
	return f.prefix + text, nil
}

type notice struct {
	code   domain.NoticeCode
	detail string
}

type recordingSink struct {
	mu           sync.Mutex
	views        []domain.View
	notices      []notice
	messages     []domain.Message
	participants [][]domain.Participant
	speakers     []string
	recordings   []domain.RecordingStatus
}

func (s *recordingSink) ViewChanged(view domain.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views = append(s.views, view)
}

func (s *recordingSink) Notice(code domain.NoticeCode, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice{code: code, detail: detail})
}

func (s *recordingSink) MessageAppended(message domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *recordingSink) ParticipantsChanged(participants []domain.Participant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants = append(s.participants, participants)
}

func (s *recordingSink) SpeakerChanged(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speakers = append(s.speakers, name)
}

func (s *recordingSink) RecordingChanged(status domain.RecordingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordings = append(s.recordings, status)
}

func (s *recordingSink) noticeCodes() []domain.NoticeCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.NoticeCode, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, n.code)
	}
	return out
}

func (s *recordingSink) lastSpeaker() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.speakers) == 0 {
		return "", false
	}
	return s.speakers[len(s.speakers)-1], true
}

func (s *recordingSink) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
