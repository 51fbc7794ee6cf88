package slackbot

import (
	"encoding/json"
	"errors"
	"testing"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/view"
)

func parseInteraction(t *testing.T, payload string) slackapi.InteractionCallback {
	t.Helper()
	var cb slackapi.InteractionCallback
	require.NoError(t, json.Unmarshal([]byte(payload), &cb))
	return cb
}

func parseEvent(t *testing.T, payload string) slackevents.EventsAPIEvent {
	t.Helper()
	ev, err := slackevents.ParseEvent(json.RawMessage(payload), slackevents.OptionNoVerifyToken())
	require.NoError(t, err)
	return ev
}

func TestFromInteraction_Shortcut(t *testing.T) {
	cb := parseInteraction(t, `{
		"type": "shortcut",
		"callback_id": "customer_info",
		"trigger_id": "trig-1",
		"user": {"id": "U1"}
	}`)

	events := FromInteraction(cb)

	require.Len(t, events, 1)
	assert.Equal(t, inbound.EventShortcut, events[0].Kind)
	assert.Equal(t, view.CallbackCustomerInfo, events[0].ID)
	assert.Equal(t, "U1", events[0].UserID)
	assert.Equal(t, "trig-1", events[0].TriggerID)
}

func TestFromInteraction_MessageAction(t *testing.T) {
	cb := parseInteraction(t, `{
		"type": "message_action",
		"callback_id": "customer_info",
		"channel": {"id": "C42"},
		"user": {"id": "U1"}
	}`)

	events := FromInteraction(cb)

	require.Len(t, events, 1)
	assert.Equal(t, inbound.EventShortcut, events[0].Kind)
	assert.Equal(t, "C42", events[0].ChannelID)
}

func TestFromInteraction_BlockActionOnMessage(t *testing.T) {
	cb := parseInteraction(t, `{
		"type": "block_actions",
		"trigger_id": "trig-2",
		"user": {"id": "U1"},
		"container": {"type": "message", "message_ts": "1700000000.000100", "channel_id": "C42"},
		"actions": [{"action_id": "check_orders", "block_id": "b1", "value": "CUST-1"}]
	}`)

	events := FromInteraction(cb)

	require.Len(t, events, 1)
	evt := events[0]
	assert.Equal(t, inbound.EventBlockAction, evt.Kind)
	assert.Equal(t, view.ActionCheckOrders, evt.ID)
	assert.Equal(t, "CUST-1", evt.Value)
	assert.Equal(t, "C42", evt.ChannelID)
	require.NotNil(t, evt.Message)
	assert.Equal(t, model.MessageRef{Channel: "C42", Timestamp: "1700000000.000100"}, *evt.Message)
	assert.Nil(t, evt.View)
}

func TestFromInteraction_BlockActionInModal(t *testing.T) {
	cb := parseInteraction(t, `{
		"type": "block_actions",
		"trigger_id": "trig-3",
		"user": {"id": "U1"},
		"container": {"type": "view", "view_id": "V1"},
		"view": {"id": "V1", "hash": "h-1"},
		"actions": [
			{"action_id": "next_orders", "block_id": "b1", "value": "cursor"},
			{"action_id": "next_best_actions", "block_id": "b1", "value": "CUST-1"}
		]
	}`)

	events := FromInteraction(cb)

	require.Len(t, events, 2)
	for _, evt := range events {
		require.NotNil(t, evt.View)
		assert.Equal(t, model.ViewRef{ID: "V1", Hash: "h-1"}, *evt.View)
		assert.Nil(t, evt.Message)
	}
	assert.Equal(t, view.ActionNextOrders, events[0].ID)
	assert.Equal(t, "cursor", events[0].Value)
	assert.Equal(t, view.ActionNextBestActions, events[1].ID)
}

func TestFromInteraction_Unsupported(t *testing.T) {
	cb := parseInteraction(t, `{"type": "view_closed", "user": {"id": "U1"}}`)
	assert.Empty(t, FromInteraction(cb))
}

func TestFromSlashCommand(t *testing.T) {
	evt := FromSlashCommand(slackapi.SlashCommand{
		Command:   "/insight",
		Text:      "customer CUST-9",
		ChannelID: "C1",
		UserID:    "U1",
		TriggerID: "trig",
	})

	assert.Equal(t, inbound.EventSlashCommand, evt.Kind)
	assert.Equal(t, view.CommandInsight, evt.ID)
	assert.Equal(t, "customer CUST-9", evt.Text)
	assert.Equal(t, "trig", evt.TriggerID)
}

func TestFromEventsAPI_AppHomeOpened(t *testing.T) {
	ev := parseEvent(t, `{
		"type": "event_callback",
		"event": {"type": "app_home_opened", "user": "U1", "channel": "D1", "tab": "home"}
	}`)

	evt, ok := FromEventsAPI(ev)

	require.True(t, ok)
	assert.Equal(t, inbound.EventPlatformEvent, evt.Kind)
	assert.Equal(t, view.EventAppHomeOpened, evt.ID)
	assert.Equal(t, "U1", evt.UserID)
	assert.Equal(t, "home", evt.Value)
}

func TestFromEventsAPI_MessageDeleted(t *testing.T) {
	ev := parseEvent(t, `{
		"type": "event_callback",
		"event": {"type": "message", "subtype": "message_deleted", "channel": "C1", "deleted_ts": "1700000000.000100", "hidden": true}
	}`)

	evt, ok := FromEventsAPI(ev)

	require.True(t, ok)
	assert.Equal(t, inbound.EventMessage, evt.Kind)
	assert.Equal(t, view.EventMessageDeleted, evt.ID)
	require.NotNil(t, evt.Message)
	assert.Equal(t, "1700000000.000100", evt.Message.Timestamp)
}

func TestFromEventsAPI_IgnoresBotMessages(t *testing.T) {
	ev := parseEvent(t, `{
		"type": "event_callback",
		"event": {"type": "message", "channel": "C1", "bot_id": "B1", "text": "hi", "ts": "1.0"}
	}`)

	_, ok := FromEventsAPI(ev)
	assert.False(t, ok)
}

func TestFromEventsAPI_UserMessage(t *testing.T) {
	ev := parseEvent(t, `{
		"type": "event_callback",
		"event": {"type": "message", "channel": "C1", "user": "U1", "text": "hello", "ts": "1.0"}
	}`)

	evt, ok := FromEventsAPI(ev)

	require.True(t, ok)
	assert.Equal(t, "message", evt.ID)
	assert.Equal(t, "hello", evt.Text)
}

func TestOnceAck(t *testing.T) {
	calls := 0
	sentinel := errors.New("send failed")
	ack := onceAck(func(payload any) error {
		calls++
		return sentinel
	})

	assert.ErrorIs(t, ack(nil), sentinel)
	assert.ErrorIs(t, ack("again"), sentinel)
	assert.Equal(t, 1, calls)
}
