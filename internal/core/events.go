package core

import (
	"time"

	"github.com/dkeye/chatrelay/internal/domain"
)

// Inbound event names (client -> server).
const (
	EventRegisterUser = "register_user"
	EventNewMessage   = "new_message"
	EventTyping       = "typing"
	EventStopTyping   = "stop_typing"
	EventPing         = "ping"
)

// Outbound event names (server -> client).
const (
	EventRegistrationSuccess = "registration_success"
	EventRegistrationError   = "registration_error"
	EventReceiveMessage      = "receive_message"
	EventUpdateUserList      = "update_user_list"
	EventShowTyping          = "show_typing"
	EventHideTyping          = "hide_typing"
	EventPong                = "pong"
	EventError               = "error"
)

const MessageTypeSystem = "system"

// MessagePayload is the body of receive_message.
// System notices carry only Message and Type.
type MessagePayload struct {
	Username  string     `json:"username,omitempty"`
	Message   string     `json:"message"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Type      string     `json:"type,omitempty"`
}

func SystemNotice(text string) MessagePayload {
	return MessagePayload{Message: text, Type: MessageTypeSystem}
}

func UserMessage(username, text string, at time.Time) MessagePayload {
	return MessagePayload{Username: username, Message: text, Timestamp: &at}
}

type RegistrationSuccess struct {
	History []domain.ChatMessage `json:"history"`
}

type RegistrationError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type TypingPayload struct {
	Username string `json:"username"`
}

// Empty is sent for events without a body, encoded as {}.
type Empty struct{}
