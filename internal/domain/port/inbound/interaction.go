package inbound

import (
	"context"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

type EventKind string

const (
	EventShortcut      EventKind = "shortcut"
	EventBlockAction   EventKind = "block_action"
	EventSlashCommand  EventKind = "slash_command"
	EventPlatformEvent EventKind = "platform_event"
	EventMessage       EventKind = "message"
)

// TriggerEvent is a user or platform action normalized away from the
// transport that delivered it.
type TriggerEvent struct {
	Kind EventKind
	// ID is the callback ID, action ID, command name or event type.
	ID        string
	UserID    string
	ChannelID string
	// TriggerID is the short-lived token required to open a modal.
	TriggerID string
	// Value is the value attached to a button.
	Value string
	// Text is the argument text of a slash command.
	Text    string
	Message *model.MessageRef
	View    *model.ViewRef
}

// AckFunc acknowledges an event to the platform. payload may be nil or an
// immediate response such as slash command text.
type AckFunc func(payload any) error

// InteractionPort handles trigger events from messaging platforms. client is
// the outbound capability for this event only.
type InteractionPort interface {
	Dispatch(ctx context.Context, evt TriggerEvent, client outbound.Messenger, ack AckFunc) error
}

// TextReply is an ack payload that answers the user immediately, such as the
// response to a slash command.
type TextReply struct {
	Text string `json:"text"`
}
