package slack

import (
	"context"
	"errors"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/insight-bot/internal/adapter/inbound/slackbot/template"
	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

// Config holds Slack messenger configuration.
type Config struct {
	BotToken string
	// APIURL overrides the Slack Web API endpoint, e.g. for tests.
	APIURL string
}

// Messenger implements outbound.Messenger via the Slack Web API.
type Messenger struct {
	client *slackapi.Client
}

// NewMessenger creates a new Slack Messenger.
func NewMessenger(cfg Config) *Messenger {
	var opts []slackapi.Option
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	return &Messenger{client: slackapi.New(cfg.BotToken, opts...)}
}

// goneErrors are Slack error codes meaning the target can no longer be
// updated.
var goneErrors = map[string]bool{
	"channel_not_found":   true,
	"message_not_found":   true,
	"cant_update_message": true,
	"is_archived":         true,
	"not_in_channel":      true,
	"not_found":           true,
}

// translate maps Slack API errors onto domain errors.
func translate(op string, err error) error {
	var apiErr slackapi.SlackErrorResponse
	if errors.As(err, &apiErr) && goneErrors[apiErr.Err] {
		return fmt.Errorf("slack %s: %w: %s", op, outbound.ErrMessageGone, apiErr.Err)
	}
	return fmt.Errorf("slack %s: %w", op, err)
}

func (m *Messenger) PostMessage(ctx context.Context, channelID string, view model.View) (model.MessageRef, error) {
	ch, ts, err := m.client.PostMessageContext(ctx, channelID, template.MessageOptions(view)...)
	if err != nil {
		return model.MessageRef{}, translate("PostMessage", err)
	}
	return model.MessageRef{Channel: ch, Timestamp: ts}, nil
}

func (m *Messenger) UpdateMessage(ctx context.Context, ref model.MessageRef, view model.View) error {
	_, _, _, err := m.client.UpdateMessageContext(ctx, ref.Channel, ref.Timestamp, template.MessageOptions(view)...)
	if err != nil {
		return translate("UpdateMessage", err)
	}
	return nil
}

func (m *Messenger) OpenView(ctx context.Context, triggerID string, view model.View) (model.ViewRef, error) {
	resp, err := m.client.OpenViewContext(ctx, triggerID, template.BuildModal(view))
	if err != nil {
		return model.ViewRef{}, translate("OpenView", err)
	}
	return model.ViewRef{ID: resp.ID, Hash: resp.Hash}, nil
}

// UpdateView replaces the modal identified by ref. A stale hash is rejected
// by Slack, which keeps concurrent updates from overwriting each other.
func (m *Messenger) UpdateView(ctx context.Context, ref model.ViewRef, view model.View) (model.ViewRef, error) {
	resp, err := m.client.UpdateViewContext(ctx, template.BuildModal(view), "", ref.Hash, ref.ID)
	if err != nil {
		return model.ViewRef{}, translate("UpdateView", err)
	}
	return model.ViewRef{ID: resp.ID, Hash: resp.Hash}, nil
}

func (m *Messenger) PublishHome(ctx context.Context, userID string, view model.View) error {
	_, err := m.client.PublishViewContext(ctx, slackapi.PublishViewContextRequest{
		UserID: userID,
		View:   template.BuildHome(view),
	})
	if err != nil {
		return translate("PublishHome", err)
	}
	return nil
}

// HealthCheck verifies the bot token with auth.test.
func (m *Messenger) HealthCheck(ctx context.Context) error {
	if _, err := m.client.AuthTestContext(ctx); err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	return nil
}
