package outbound

import (
	"context"
	"errors"

	"github.com/jonny/insight-bot/internal/domain/model"
)

// ErrMessageGone reports that the target message or channel no longer accepts
// updates (deleted, archived, or inaccessible to the bot).
var ErrMessageGone = errors.New("message no longer available")

// Messenger renders views on a messaging platform.
type Messenger interface {
	PostMessage(ctx context.Context, channelID string, view model.View) (model.MessageRef, error)
	UpdateMessage(ctx context.Context, ref model.MessageRef, view model.View) error
	OpenView(ctx context.Context, triggerID string, view model.View) (model.ViewRef, error)
	UpdateView(ctx context.Context, ref model.ViewRef, view model.View) (model.ViewRef, error)
	PublishHome(ctx context.Context, userID string, view model.View) error
}
