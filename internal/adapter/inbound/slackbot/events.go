package slackbot

import (
	"sync"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/view"
)

// FromInteraction translates an interactivity payload. A block_actions
// payload yields one event per action; unsupported types yield none.
func FromInteraction(cb slackapi.InteractionCallback) []inbound.TriggerEvent {
	switch cb.Type {
	case slackapi.InteractionTypeShortcut, slackapi.InteractionTypeMessageAction:
		return []inbound.TriggerEvent{{
			Kind:      inbound.EventShortcut,
			ID:        cb.CallbackID,
			UserID:    cb.User.ID,
			ChannelID: cb.Channel.ID,
			TriggerID: cb.TriggerID,
		}}

	case slackapi.InteractionTypeBlockActions:
		channel := cb.Container.ChannelID
		if channel == "" {
			channel = cb.Channel.ID
		}

		var msg *model.MessageRef
		if ts := messageTimestamp(cb); ts != "" && channel != "" {
			msg = &model.MessageRef{Channel: channel, Timestamp: ts}
		}

		var vref *model.ViewRef
		if cb.View.ID != "" {
			vref = &model.ViewRef{ID: cb.View.ID, Hash: cb.View.Hash}
		}

		events := make([]inbound.TriggerEvent, 0, len(cb.ActionCallback.BlockActions))
		for _, a := range cb.ActionCallback.BlockActions {
			events = append(events, inbound.TriggerEvent{
				Kind:      inbound.EventBlockAction,
				ID:        a.ActionID,
				UserID:    cb.User.ID,
				ChannelID: channel,
				TriggerID: cb.TriggerID,
				Value:     a.Value,
				Message:   msg,
				View:      vref,
			})
		}
		return events
	}
	return nil
}

func messageTimestamp(cb slackapi.InteractionCallback) string {
	if cb.Container.MessageTs != "" {
		return cb.Container.MessageTs
	}
	return cb.Message.Timestamp
}

// FromSlashCommand translates a slash command invocation.
func FromSlashCommand(cmd slackapi.SlashCommand) inbound.TriggerEvent {
	return inbound.TriggerEvent{
		Kind:      inbound.EventSlashCommand,
		ID:        cmd.Command,
		UserID:    cmd.UserID,
		ChannelID: cmd.ChannelID,
		TriggerID: cmd.TriggerID,
		Text:      cmd.Text,
	}
}

// FromEventsAPI translates an Events API callback. Messages posted by bots
// and unsupported events are reported as not ok.
func FromEventsAPI(ev slackevents.EventsAPIEvent) (inbound.TriggerEvent, bool) {
	if ev.Type != slackevents.CallbackEvent {
		return inbound.TriggerEvent{}, false
	}

	switch inner := ev.InnerEvent.Data.(type) {
	case *slackevents.AppHomeOpenedEvent:
		return inbound.TriggerEvent{
			Kind:      inbound.EventPlatformEvent,
			ID:        view.EventAppHomeOpened,
			UserID:    inner.User,
			ChannelID: inner.Channel,
			Value:     inner.Tab,
		}, true

	case *slackevents.MessageEvent:
		if inner.SubType == "message_deleted" {
			evt := inbound.TriggerEvent{
				Kind:      inbound.EventMessage,
				ID:        view.EventMessageDeleted,
				ChannelID: inner.Channel,
			}
			if inner.DeletedTimeStamp != "" {
				evt.Message = &model.MessageRef{Channel: inner.Channel, Timestamp: inner.DeletedTimeStamp}
			}
			return evt, true
		}
		if inner.BotID != "" || inner.SubType == "bot_message" {
			return inbound.TriggerEvent{}, false
		}
		return inbound.TriggerEvent{
			Kind:      inbound.EventMessage,
			ID:        "message",
			UserID:    inner.User,
			ChannelID: inner.Channel,
			Text:      inner.Text,
			Message:   &model.MessageRef{Channel: inner.Channel, Timestamp: inner.TimeStamp},
		}, true
	}
	return inbound.TriggerEvent{}, false
}

// onceAck acknowledges a transport envelope at most once, however many
// events the envelope was translated into.
func onceAck(ack func(payload any) error) inbound.AckFunc {
	var (
		once sync.Once
		err  error
	)
	return func(payload any) error {
		once.Do(func() { err = ack(payload) })
		return err
	}
}
