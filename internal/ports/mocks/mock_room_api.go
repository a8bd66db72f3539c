// Package mocks holds a gomock mock of ports.RoomAPI in mockgen's layout.
// Running go generate on internal/ports replaces this file with mockgen output.
package mocks

import (
	context "context"
	reflect "reflect"
	domain "roomscribe/internal/domain"
	ports "roomscribe/internal/ports"

	gomock "go.uber.org/mock/gomock"
)

// MockRoomAPI is a mock of RoomAPI interface.
type MockRoomAPI struct {
	ctrl     *gomock.Controller
	recorder *MockRoomAPIMockRecorder
	isgomock struct{}
}

// MockRoomAPIMockRecorder is the mock recorder for MockRoomAPI.
type MockRoomAPIMockRecorder struct {
	mock *MockRoomAPI
}

// NewMockRoomAPI creates a new mock instance.
func NewMockRoomAPI(ctrl *gomock.Controller) *MockRoomAPI {
	mock := &MockRoomAPI{ctrl: ctrl}
	mock.recorder = &MockRoomAPIMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRoomAPI) EXPECT() *MockRoomAPIMockRecorder {
	return m.recorder
}

// AcquireSpeaker mocks base method.
func (m *MockRoomAPI) AcquireSpeaker(ctx context.Context, token string, roomID string) (ports.SpeakerState, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AcquireSpeaker", ctx, token, roomID)
	ret0, _ := ret[0].(ports.SpeakerState)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// AcquireSpeaker indicates an expected call of AcquireSpeaker.
func (mr *MockRoomAPIMockRecorder) AcquireSpeaker(ctx, token, roomID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AcquireSpeaker", reflect.TypeOf((*MockRoomAPI)(nil).AcquireSpeaker), ctx, token, roomID)
}

// CreateRoom mocks base method.
func (m *MockRoomAPI) CreateRoom(ctx context.Context, token string, draft domain.RoomDraft) (ports.RoomDetails, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateRoom", ctx, token, draft)
	ret0, _ := ret[0].(ports.RoomDetails)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CreateRoom indicates an expected call of CreateRoom.
func (mr *MockRoomAPIMockRecorder) CreateRoom(ctx, token, draft any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateRoom", reflect.TypeOf((*MockRoomAPI)(nil).CreateRoom), ctx, token, draft)
}

// GetRoom mocks base method.
func (m *MockRoomAPI) GetRoom(ctx context.Context, token string, roomID string) (ports.RoomDetails, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetRoom", ctx, token, roomID)
	ret0, _ := ret[0].(ports.RoomDetails)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetRoom indicates an expected call of GetRoom.
func (mr *MockRoomAPIMockRecorder) GetRoom(ctx, token, roomID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetRoom", reflect.TypeOf((*MockRoomAPI)(nil).GetRoom), ctx, token, roomID)
}

// HeartbeatSpeaker mocks base method.
func (m *MockRoomAPI) HeartbeatSpeaker(ctx context.Context, token string, roomID string) (ports.SpeakerState, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "HeartbeatSpeaker", ctx, token, roomID)
	ret0, _ := ret[0].(ports.SpeakerState)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// HeartbeatSpeaker indicates an expected call of HeartbeatSpeaker.
func (mr *MockRoomAPIMockRecorder) HeartbeatSpeaker(ctx, token, roomID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "HeartbeatSpeaker", reflect.TypeOf((*MockRoomAPI)(nil).HeartbeatSpeaker), ctx, token, roomID)
}

// JoinRoom mocks base method.
func (m *MockRoomAPI) JoinRoom(ctx context.Context, token string, roomID string, password string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "JoinRoom", ctx, token, roomID, password)
	ret0, _ := ret[0].(error)
	return ret0
}

// JoinRoom indicates an expected call of JoinRoom.
func (mr *MockRoomAPIMockRecorder) JoinRoom(ctx, token, roomID, password any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "JoinRoom", reflect.TypeOf((*MockRoomAPI)(nil).JoinRoom), ctx, token, roomID, password)
}

// LeaveRoom mocks base method.
func (m *MockRoomAPI) LeaveRoom(ctx context.Context, token string, roomID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LeaveRoom", ctx, token, roomID)
	ret0, _ := ret[0].(error)
	return ret0
}

// LeaveRoom indicates an expected call of LeaveRoom.
func (mr *MockRoomAPIMockRecorder) LeaveRoom(ctx, token, roomID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "LeaveRoom", reflect.TypeOf((*MockRoomAPI)(nil).LeaveRoom), ctx, token, roomID)
}

// ListMessages mocks base method.
func (m *MockRoomAPI) ListMessages(ctx context.Context, token string, roomID string, limit int, offset int) ([]ports.MessageRecord, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListMessages", ctx, token, roomID, limit, offset)
	ret0, _ := ret[0].([]ports.MessageRecord)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListMessages indicates an expected call of ListMessages.
func (mr *MockRoomAPIMockRecorder) ListMessages(ctx, token, roomID, limit, offset any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListMessages", reflect.TypeOf((*MockRoomAPI)(nil).ListMessages), ctx, token, roomID, limit, offset)
}

// ListParticipants mocks base method.
func (m *MockRoomAPI) ListParticipants(ctx context.Context, token string, roomID string) ([]domain.Participant, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListParticipants", ctx, token, roomID)
	ret0, _ := ret[0].([]domain.Participant)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListParticipants indicates an expected call of ListParticipants.
func (mr *MockRoomAPIMockRecorder) ListParticipants(ctx, token, roomID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListParticipants", reflect.TypeOf((*MockRoomAPI)(nil).ListParticipants), ctx, token, roomID)
}

// Login mocks base method.
func (m *MockRoomAPI) Login(ctx context.Context, creds domain.Credentials) (ports.AuthResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Login", ctx, creds)
	ret0, _ := ret[0].(ports.AuthResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Login indicates an expected call of Login.
func (mr *MockRoomAPIMockRecorder) Login(ctx, creds any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Login", reflect.TypeOf((*MockRoomAPI)(nil).Login), ctx, creds)
}

// ReleaseSpeaker mocks base method.
func (m *MockRoomAPI) ReleaseSpeaker(ctx context.Context, token string, roomID string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReleaseSpeaker", ctx, token, roomID)
	ret0, _ := ret[0].(error)
	return ret0
}

// ReleaseSpeaker indicates an expected call of ReleaseSpeaker.
func (mr *MockRoomAPIMockRecorder) ReleaseSpeaker(ctx, token, roomID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReleaseSpeaker", reflect.TypeOf((*MockRoomAPI)(nil).ReleaseSpeaker), ctx, token, roomID)
}

// Signup mocks base method.
func (m *MockRoomAPI) Signup(ctx context.Context, creds domain.Credentials) (ports.AuthResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Signup", ctx, creds)
	ret0, _ := ret[0].(ports.AuthResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Signup indicates an expected call of Signup.
func (mr *MockRoomAPIMockRecorder) Signup(ctx, creds any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Signup", reflect.TypeOf((*MockRoomAPI)(nil).Signup), ctx, creds)
}

// Transcribe mocks base method.
func (m *MockRoomAPI) Transcribe(ctx context.Context, token string, roomID string, clip ports.AudioClip) (ports.Transcription, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Transcribe", ctx, token, roomID, clip)
	ret0, _ := ret[0].(ports.Transcription)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Transcribe indicates an expected call of Transcribe.
func (mr *MockRoomAPIMockRecorder) Transcribe(ctx, token, roomID, clip any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Transcribe", reflect.TypeOf((*MockRoomAPI)(nil).Transcribe), ctx, token, roomID, clip)
}
