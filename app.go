package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"roomscribe/internal/audio"
	"roomscribe/internal/bootstrap"
	"roomscribe/internal/config"
	"roomscribe/internal/domain"
	"roomscribe/internal/usecase"
)

const (
	eventView         = "roomscribe:view"
	eventNotice       = "roomscribe:notice"
	eventMessage      = "roomscribe:message"
	eventSpeaker      = "roomscribe:speaker"
	eventRecording    = "roomscribe:recording"
	eventParticipants = "roomscribe:participants"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, nil)
	if err != nil {
		a.bootErr = err
		a.Notice(domain.NoticeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.ViewChanged(a.controller.View())
}

func (a *App) shutdown(ctx context.Context) {
	if a.controller != nil {
		a.controller.Shutdown(ctx)
	}
}

// Login signs in with an email and password.
func (a *App) Login(userID, password string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.Login(a.ctx, domain.Credentials{UserID: userID, Password: password})
	return a.controller.Snapshot(), err
}

// Signup registers an account and signs in.
func (a *App) Signup(userID, password, nickname string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.Signup(a.ctx, domain.Credentials{UserID: userID, Password: password, Nickname: nickname})
	return a.controller.Snapshot(), err
}

func (a *App) OpenCreateRoom() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.OpenCreateRoom()
}

func (a *App) CancelCreateRoom() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.CancelCreateRoom()
}

// CreateRoom creates a room, joins it and enters it.
func (a *App) CreateRoom(title, password string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.CreateRoom(a.ctx, domain.RoomDraft{Title: title, Password: password})
	return a.controller.Snapshot(), err
}

// JoinRoom enters an existing room by code.
func (a *App) JoinRoom(code, password string) (domain.Snapshot, error) {
	if err := a.requireReady(); err != nil {
		return domain.Snapshot{}, err
	}
	err := a.controller.JoinRoom(a.ctx, code, password)
	return a.controller.Snapshot(), err
}

func (a *App) LeaveRoom() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	return a.controller.LeaveRoom(a.ctx)
}

// ToggleRecording is the talk button.
func (a *App) ToggleRecording() (domain.RecordingStatus, error) {
	if err := a.requireReady(); err != nil {
		return domain.RecordingStatus{}, err
	}
	err := a.controller.ToggleRecording(a.ctx)
	return a.controller.Snapshot().Recording, err
}

// GetSnapshot returns the whole session for a fresh render.
func (a *App) GetSnapshot() domain.Snapshot {
	if a.controller == nil {
		return domain.Snapshot{View: domain.ViewAuth}
	}
	return a.controller.Snapshot()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"apiBaseUrl":       a.cfg.API.BaseURL,
		"wsBaseUrl":        a.cfg.API.WSBaseURL,
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
		"audioContainer":   a.cfg.Audio.Container,
		"audioContentType": audio.ContentTypeFor(a.cfg.Audio.Container),
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ViewChanged tells the frontend which screen to show.
func (a *App) ViewChanged(view domain.View) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventView, map[string]string{"view": string(view)})
}

// Notice emits user-facing problems.
func (a *App) Notice(code domain.NoticeCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventNotice, map[string]string{
		"code":    string(code),
		"message": noticeMessage(code, detail),
		"detail":  detail,
	})
}

func (a *App) MessageAppended(message domain.Message) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventMessage, message)
}

func (a *App) ParticipantsChanged(participants []domain.Participant) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventParticipants, participants)
}

func (a *App) SpeakerChanged(name string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSpeaker, map[string]string{"name": name, "label": speakerLabel(name)})
}

func (a *App) RecordingChanged(status domain.RecordingStatus) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventRecording, status)
}

func speakerLabel(name string) string {
	if name == "" {
		return "No one is speaking"
	}
	return name + " is speaking"
}

func noticeMessage(code domain.NoticeCode, detail string) string {
	switch code {
	case domain.NoticeStartup:
		return "Startup failed"
	case domain.NoticeValidation:
		if detail != "" {
			return detail
		}
		return "Please check the form"
	case domain.NoticeAuth:
		return "Sign in failed"
	case domain.NoticeRoomCreate:
		return "Could not create room"
	case domain.NoticeRoomJoin:
		return "Could not join room"
	case domain.NoticeSpeaker:
		return "Someone else has the floor"
	case domain.NoticeRecording:
		return "Microphone unavailable"
	case domain.NoticeTranscription:
		return "Transcription failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}
