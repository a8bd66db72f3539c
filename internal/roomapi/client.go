package roomapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"roomscribe/internal/domain"
	"roomscribe/internal/idgen"
	"roomscribe/internal/ports"
	"roomscribe/internal/wire"
)

// Config controls the REST client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// APIError is a non-2xx answer from the room service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Client implements ports.RoomAPI over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000/api/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With().Str("module", "roomapi").Logger(),
		now:        time.Now,
	}
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (ports.AuthResult, error) {
	return c.authenticate(ctx, "/auth/login", authRequest{Email: creds.UserID, Password: creds.Password})
}

func (c *Client) Signup(ctx context.Context, creds domain.Credentials) (ports.AuthResult, error) {
	return c.authenticate(ctx, "/auth/signup", authRequest{
		Email:    creds.UserID,
		Password: creds.Password,
		Nickname: creds.Nickname,
	})
}

func (c *Client) authenticate(ctx context.Context, path string, body authRequest) (ports.AuthResult, error) {
	var resp authResponse
	if err := c.doJSON(ctx, http.MethodPost, path, "", body, &resp); err != nil {
		return ports.AuthResult{}, err
	}
	if resp.AccessToken == "" {
		return ports.AuthResult{}, errors.New("auth response did not include an access token")
	}
	userID := resp.User.Email
	if userID == "" {
		userID = body.Email
	}
	return ports.AuthResult{AccessToken: resp.AccessToken, UserID: userID}, nil
}

func (c *Client) CreateRoom(ctx context.Context, token string, draft domain.RoomDraft) (ports.RoomDetails, error) {
	var resp roomResponse
	req := createRoomRequest{Title: draft.Title, Password: draft.Password}
	if err := c.doJSON(ctx, http.MethodPost, "/rooms", token, req, &resp); err != nil {
		return ports.RoomDetails{}, err
	}
	return resp.toDetails(), nil
}

func (c *Client) JoinRoom(ctx context.Context, token, roomID, password string) error {
	return c.doJSON(ctx, http.MethodPost, roomPath(roomID, "join"), token, joinRoomRequest{Password: password}, nil)
}

func (c *Client) LeaveRoom(ctx context.Context, token, roomID string) error {
	return c.doJSON(ctx, http.MethodPost, roomPath(roomID, "leave"), token, nil, nil)
}

func (c *Client) GetRoom(ctx context.Context, token, roomID string) (ports.RoomDetails, error) {
	var resp roomResponse
	if err := c.doJSON(ctx, http.MethodGet, roomPath(roomID), token, nil, &resp); err != nil {
		return ports.RoomDetails{}, err
	}
	return resp.toDetails(), nil
}

func (c *Client) ListParticipants(ctx context.Context, token, roomID string) ([]domain.Participant, error) {
	var resp []participantResponse
	if err := c.doJSON(ctx, http.MethodGet, roomPath(roomID, "participants"), token, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Participant, 0, len(resp))
	for _, p := range resp {
		out = append(out, domain.Participant{UserID: p.UserID.String(), DisplayName: p.Email})
	}
	return out, nil
}

func (c *Client) ListMessages(ctx context.Context, token, roomID string, limit, offset int) ([]ports.MessageRecord, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var resp []messageResponse
	path := roomPath(roomID, "messages") + "?" + query.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]ports.MessageRecord, 0, len(resp))
	for _, m := range resp {
		out = append(out, ports.MessageRecord{
			ID:           m.ID.String(),
			SenderUserID: m.SenderUserID.String(),
			Text:         m.ContentText,
			CreatedAt:    wire.ParseTime(m.CreatedAt),
		})
	}
	return out, nil
}

func (c *Client) AcquireSpeaker(ctx context.Context, token, roomID string) (ports.SpeakerState, error) {
	return c.speaker(ctx, token, roomID, "acquire")
}

func (c *Client) HeartbeatSpeaker(ctx context.Context, token, roomID string) (ports.SpeakerState, error) {
	return c.speaker(ctx, token, roomID, "heartbeat")
}

func (c *Client) ReleaseSpeaker(ctx context.Context, token, roomID string) error {
	return c.doJSON(ctx, http.MethodPost, roomPath(roomID, "speaker", "release"), token, nil, nil)
}

func (c *Client) speaker(ctx context.Context, token, roomID, action string) (ports.SpeakerState, error) {
	var resp speakerResponse
	if err := c.doJSON(ctx, http.MethodPost, roomPath(roomID, "speaker", action), token, nil, &resp); err != nil {
		return ports.SpeakerState{}, err
	}
	return ports.SpeakerState{CurrentSpeakerUserID: resp.CurrentSpeakerUserID.String()}, nil
}

// Transcribe uploads a clip as multipart field "file".
func (c *Client) Transcribe(ctx context.Context, token, roomID string, clip ports.AudioClip) (ports.Transcription, error) {
	contentType := clip.ContentType
	if contentType == "" {
		contentType = "audio/webm"
	}
	fileName := clip.FileName
	if fileName == "" {
		fileName = fmt.Sprintf("stt-%d.%s", c.now().UnixMilli(), extensionFor(contentType))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return ports.Transcription{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := part.Write(clip.Data); err != nil {
		return ports.Transcription{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return ports.Transcription{}, fmt.Errorf("failed to build upload: %w", err)
	}

	var resp transcriptionResponse
	err = c.do(ctx, http.MethodPost, roomPath(roomID, "stt"), token, writer.FormDataContentType(), &body, &resp, "STT request failed")
	if err != nil {
		return ports.Transcription{}, err
	}
	return ports.Transcription{MessageID: resp.MessageID.String(), Text: resp.Text}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, token, contentType, body, out, "request failed")
}

func (c *Client) do(ctx context.Context, method, path, token, contentType string, body io.Reader, out any, failPrefix string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := idgen.NewRequestID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, failPrefix)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError prefers the body's "message" field, then a bare JSON string.
func decodeError(resp *http.Response, failPrefix string) error {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("%s (%d)", failPrefix, resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil || len(bytes.TrimSpace(raw)) == 0 {
		return apiErr
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil && text != "" {
		apiErr.Message = text
		return apiErr
	}
	var body errorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		apiErr.Message = body.Message
	}
	return apiErr
}

func roomPath(roomID string, parts ...string) string {
	segments := append([]string{"/rooms", url.PathEscape(roomID)}, parts...)
	return strings.Join(segments, "/")
}

func extensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "audio/ogg":
		return "ogg"
	case "audio/wav", "audio/x-wav":
		return "wav"
	default:
		return "webm"
	}
}
