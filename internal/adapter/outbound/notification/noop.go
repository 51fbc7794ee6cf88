package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jonny/insight-bot/internal/domain/model"
)

// LogMessenger is a messenger that logs views instead of sending them.
// Used in local development when Slack is not configured.
type LogMessenger struct {
	logger *slog.Logger
	seq    atomic.Int64
}

// NewLogMessenger creates a new LogMessenger.
func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) next(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, m.seq.Add(1))
}

func (m *LogMessenger) PostMessage(_ context.Context, channelID string, view model.View) (model.MessageRef, error) {
	ref := model.MessageRef{Channel: channelID, Timestamp: m.next("log-ts")}
	m.logger.Info("log: post message",
		"ref", ref.Key(),
		"text", view.FallbackText,
		"blocks", len(view.Blocks),
	)
	return ref, nil
}

func (m *LogMessenger) UpdateMessage(_ context.Context, ref model.MessageRef, view model.View) error {
	m.logger.Info("log: update message",
		"ref", ref.Key(),
		"text", view.FallbackText,
		"blocks", len(view.Blocks),
	)
	return nil
}

func (m *LogMessenger) OpenView(_ context.Context, triggerID string, view model.View) (model.ViewRef, error) {
	ref := model.ViewRef{ID: m.next("log-view"), Hash: m.next("log-hash")}
	m.logger.Info("log: open view",
		"trigger_id", triggerID,
		"view_id", ref.ID,
		"title", view.Title,
		"blocks", len(view.Blocks),
	)
	return ref, nil
}

func (m *LogMessenger) UpdateView(_ context.Context, ref model.ViewRef, view model.View) (model.ViewRef, error) {
	updated := model.ViewRef{ID: ref.ID, Hash: m.next("log-hash")}
	m.logger.Info("log: update view",
		"view_id", ref.ID,
		"title", view.Title,
		"blocks", len(view.Blocks),
	)
	for _, b := range view.Buttons() {
		m.logger.Debug("log: view button", "view_id", ref.ID, "action_id", b.ActionID, "value", b.Value)
	}
	return updated, nil
}

func (m *LogMessenger) PublishHome(_ context.Context, userID string, view model.View) error {
	m.logger.Info("log: publish home", "user", userID, "blocks", len(view.Blocks))
	return nil
}
