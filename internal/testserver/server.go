// Package testserver is an in-process stand-in for the room service: REST
// endpoints under /api/v1 and the push channel under /ws. Tests use it to
// drive the real HTTP and WebSocket clients.
package testserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"roomscribe/internal/wire"
)

// Route names used with FailNext and Calls.
const (
	RouteLogin            = "login"
	RouteSignup           = "signup"
	RouteCreateRoom       = "create_room"
	RouteJoinRoom         = "join_room"
	RouteLeaveRoom        = "leave_room"
	RouteGetRoom          = "get_room"
	RouteListParticipants = "list_participants"
	RouteListMessages     = "list_messages"
	RouteAcquireSpeaker   = "speaker_acquire"
	RouteHeartbeatSpeaker = "speaker_heartbeat"
	RouteReleaseSpeaker   = "speaker_release"
	RouteTranscribe       = "stt"
	RouteFeed             = "feed"
)

// Call records one request the server saw.
type Call struct {
	Route         string
	RoomID        string
	Authorization string
	RequestID     string
	Body          map[string]any
	Query         string
	FileName      string
	FileType      string
	FileSize      int
}

type failure struct {
	status int
	body   string
}

type room struct {
	id           string
	title        string
	password     string
	capacity     int
	participants []string
	messages     []messageRow
	speaker      string
}

type messageRow struct {
	ID           string `json:"id"`
	SenderUserID string `json:"sender_user_id"`
	ContentText  string `json:"content_text"`
	CreatedAt    string `json:"created_at"`
}

type subscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Server is the fake room service.
type Server struct {
	*httptest.Server

	// TranscriptText is returned by the STT endpoint.
	TranscriptText string
	// BroadcastTranscripts also pushes message.created for STT results.
	BroadcastTranscripts bool

	mu          sync.Mutex
	users       map[string]string
	tokens      map[string]string
	rooms       map[string]*room
	failures    map[string][]failure
	calls       []Call
	subscribers map[string][]*subscriber
	nextRoom    int
	nextMessage int
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func New() *Server {
	s := &Server{
		TranscriptText: "hello from the mic",
		users:          make(map[string]string),
		tokens:         make(map[string]string),
		rooms:          make(map[string]*room),
		failures:       make(map[string][]failure),
		subscribers:    make(map[string][]*subscriber),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/rooms", s.authed(RouteCreateRoom, s.handleCreateRoom))
		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Get("/", s.authed(RouteGetRoom, s.handleGetRoom))
			r.Post("/join", s.authed(RouteJoinRoom, s.handleJoin))
			r.Post("/leave", s.authed(RouteLeaveRoom, s.handleLeave))
			r.Get("/participants", s.authed(RouteListParticipants, s.handleParticipants))
			r.Get("/messages", s.authed(RouteListMessages, s.handleMessages))
			r.Post("/speaker/acquire", s.authed(RouteAcquireSpeaker, s.handleAcquire))
			r.Post("/speaker/heartbeat", s.authed(RouteHeartbeatSpeaker, s.handleHeartbeat))
			r.Post("/speaker/release", s.authed(RouteReleaseSpeaker, s.handleRelease))
			r.Post("/stt", s.authed(RouteTranscribe, s.handleTranscribe))
		})
	})
	r.Get("/ws/rooms/{roomID}", s.handleFeed)
	return r
}

// APIBase is the REST base URL.
func (s *Server) APIBase() string { return s.URL + "/api/v1" }

// WSBase is the push channel base URL.
func (s *Server) WSBase() string { return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws" }

// AddUser registers an account and returns its access token.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = password
	return s.issueTokenLocked(email)
}

// AddRoom seeds a room with participants.
func (s *Server) AddRoom(id, title, password string, participants ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[id] = &room{id: id, title: title, password: password, capacity: 2, participants: participants}
}

// AddMessage seeds history.
func (s *Server) AddMessage(roomID, id, sender, text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, ok := s.rooms[roomID]; ok {
		rm.messages = append(rm.messages, messageRow{ID: id, SenderUserID: sender, ContentText: text, CreatedAt: at.UTC().Format(time.RFC3339)})
	}
}

// FailNext makes the next request to route answer with status and raw body.
func (s *Server) FailNext(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], failure{status: status, body: body})
}

// Calls returns the recorded requests in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns recorded requests for one route.
func (s *Server) CallsTo(route string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Route == route {
			out = append(out, c)
		}
	}
	return out
}

// Speaker returns who holds the lock in a room.
func (s *Server) Speaker(roomID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rm, ok := s.rooms[roomID]; ok {
		return rm.speaker
	}
	return ""
}

// Subscribers counts open push channels for a room.
func (s *Server) Subscribers(roomID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers[roomID])
}

// WaitSubscribers polls until a room has n push channels or the timeout passes.
func (s *Server) WaitSubscribers(roomID string, n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.Subscribers(roomID) == n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return s.Subscribers(roomID) == n
}

// Publish sends an event to every push channel of a room.
func (s *Server) Publish(roomID, eventType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(wire.Envelope{Type: eventType, Payload: raw, TS: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return err
	}
	s.PublishRaw(roomID, data)
	return nil
}

// PublishRaw sends bytes as-is, for malformed payload tests.
func (s *Server) PublishRaw(roomID string, data []byte) {
	s.mu.Lock()
	subs := append([]*subscriber(nil), s.subscribers[roomID]...)
	s.mu.Unlock()
	for _, sub := range subs {
		_ = sub.write(data)
	}
}

// DropFeeds closes every push channel of a room from the server side.
func (s *Server) DropFeeds(roomID string) {
	s.mu.Lock()
	subs := s.subscribers[roomID]
	delete(s.subscribers, roomID)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.mu.Lock()
		_ = sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		_ = sub.conn.Close()
		sub.mu.Unlock()
	}
}

func (s *Server) issueTokenLocked(email string) string {
	token := "token-" + email
	s.tokens[token] = email
	return token
}

func (s *Server) record(route string, r *http.Request, body map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{
		Route:         route,
		RoomID:        chi.URLParam(r, "roomID"),
		Authorization: r.Header.Get("Authorization"),
		RequestID:     r.Header.Get("X-Request-ID"),
		Body:          body,
		Query:         r.URL.RawQuery,
	})
}

func (s *Server) popFailure(route string) (failure, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.failures[route]
	if len(queue) == 0 {
		return failure{}, false
	}
	s.failures[route] = queue[1:]
	return queue[0], true
}

// authed records the call, applies queued failures and checks the bearer token.
func (s *Server) authed(route string, next func(w http.ResponseWriter, r *http.Request, user string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := readJSONBody(r)
		s.record(route, r, body)
		if f, ok := s.popFailure(route); ok {
			writeRaw(w, f.status, f.body)
			return
		}

		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		user, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			return
		}
		if body != nil {
			r = r.WithContext(withBody(r.Context(), body))
		}
		next(w, r, user)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body := readJSONBody(r)
	s.record(RouteLogin, r, body)
	if f, ok := s.popFailure(RouteLogin); ok {
		writeRaw(w, f.status, f.body)
		return
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	s.mu.Lock()
	stored, ok := s.users[email]
	var token string
	if ok && stored == password {
		token = s.issueTokenLocked(email)
	}
	s.mu.Unlock()

	if token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"access_token": token, "user": map[string]string{"email": email}})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	body := readJSONBody(r)
	s.record(RouteSignup, r, body)
	if f, ok := s.popFailure(RouteSignup); ok {
		writeRaw(w, f.status, f.body)
		return
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	s.mu.Lock()
	if _, exists := s.users[email]; exists {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"message": "user already exists"})
		return
	}
	s.users[email] = password
	token := s.issueTokenLocked(email)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"access_token": token, "user": map[string]string{"email": email}})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request, _ string) {
	body := bodyFrom(r.Context())
	title, _ := body["title"].(string)
	password, _ := body["password"].(string)

	s.mu.Lock()
	s.nextRoom++
	id := fmt.Sprintf("R%04d", s.nextRoom)
	s.rooms[id] = &room{id: id, title: title, password: password, capacity: 2}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "title": title, "capacity": 2})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request, _ string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": rm.id, "title": rm.title, "capacity": rm.capacity})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, user string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	password, _ := bodyFrom(r.Context())["password"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rm.password != "" && rm.password != password {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "wrong room password"})
		return
	}
	for _, p := range rm.participants {
		if p == user {
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	if len(rm.participants) >= rm.capacity {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "room is full"})
		return
	}
	rm.participants = append(rm.participants, user)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request, user string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	kept := rm.participants[:0]
	for _, p := range rm.participants {
		if p != user {
			kept = append(kept, p)
		}
	}
	rm.participants = kept
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request, _ string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	out := make([]map[string]string, 0, len(rm.participants))
	for _, p := range rm.participants {
		out = append(out, map[string]string{"user_id": p, "email": p})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, _ string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	s.mu.Lock()
	rows := rm.messages
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := append([]messageRow{}, rows...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request, user string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	if rm.speaker != "" && rm.speaker != user {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"message": "someone else is speaking"})
		return
	}
	rm.speaker = user
	s.mu.Unlock()

	_ = s.Publish(rm.id, "speaker.changed", map[string]any{"current_speaker_user_id": user})
	writeJSON(w, http.StatusOK, map[string]any{"current_speaker_user_id": user})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request, user string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	speaker := rm.speaker
	s.mu.Unlock()
	if speaker != user {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "speaker lock expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"current_speaker_user_id": speaker})
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request, user string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	released := rm.speaker == user
	if released {
		rm.speaker = ""
	}
	s.mu.Unlock()
	if released {
		_ = s.Publish(rm.id, "speaker.changed", map[string]any{"current_speaker_user_id": nil})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request, user string) {
	rm, ok := s.lookup(w, r)
	if !ok {
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "file is required"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)

	s.mu.Lock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].Route == RouteTranscribe {
			s.calls[i].FileName = header.Filename
			s.calls[i].FileType = header.Header.Get("Content-Type")
			s.calls[i].FileSize = len(data)
			break
		}
	}
	s.nextMessage++
	id := fmt.Sprintf("m-%d", s.nextMessage)
	now := time.Now().UTC().Format(time.RFC3339)
	rm.messages = append(rm.messages, messageRow{ID: id, SenderUserID: user, ContentText: s.TranscriptText, CreatedAt: now})
	text := s.TranscriptText
	broadcast := s.BroadcastTranscripts
	s.mu.Unlock()

	if broadcast {
		_ = s.Publish(rm.id, "message.created", map[string]any{
			"message_id":     id,
			"sender_user_id": user,
			"text":           text,
			"created_at":     now,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"message_id": id, "text": text})
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.record(RouteFeed, r, nil)
	roomID := chi.URLParam(r, "roomID")
	token := r.URL.Query().Get("token")

	s.mu.Lock()
	_, authorized := s.tokens[token]
	s.mu.Unlock()
	if !authorized {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := &subscriber{conn: conn}

	s.mu.Lock()
	s.subscribers[roomID] = append(s.subscribers[roomID], sub)
	s.mu.Unlock()

	go func() {
		defer s.unsubscribe(roomID, sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) unsubscribe(roomID string, sub *subscriber) {
	s.mu.Lock()
	subs := s.subscribers[roomID]
	for i, candidate := range subs {
		if candidate == sub {
			s.subscribers[roomID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	_ = sub.conn.Close()
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*room, bool) {
	id := chi.URLParam(r, "roomID")
	s.mu.Lock()
	rm, ok := s.rooms[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "room not found"})
		return nil, false
	}
	return rm, true
}
