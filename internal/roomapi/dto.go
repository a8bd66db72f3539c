package roomapi

import (
	"roomscribe/internal/ports"
	"roomscribe/internal/wire"
)

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
}

type authResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		Email string `json:"email"`
	} `json:"user"`
}

type createRoomRequest struct {
	Title    string `json:"title"`
	Password string `json:"password,omitempty"`
}

type joinRoomRequest struct {
	Password string `json:"password,omitempty"`
}

type roomResponse struct {
	ID       wire.ID `json:"id"`
	Title    string  `json:"title"`
	Capacity int     `json:"capacity"`
}

func (r roomResponse) toDetails() ports.RoomDetails {
	return ports.RoomDetails{ID: r.ID.String(), Title: r.Title, Capacity: r.Capacity}
}

type participantResponse struct {
	UserID wire.ID `json:"user_id"`
	Email  string  `json:"email"`
}

type messageResponse struct {
	ID           wire.ID `json:"id"`
	SenderUserID wire.ID `json:"sender_user_id"`
	ContentText  string  `json:"content_text"`
	CreatedAt    string  `json:"created_at"`
}

type speakerResponse struct {
	CurrentSpeakerUserID wire.ID `json:"current_speaker_user_id"`
}

type transcriptionResponse struct {
	MessageID wire.ID `json:"message_id"`
	Text      string  `json:"text"`
}

type errorResponse struct {
	Message string `json:"message"`
}
