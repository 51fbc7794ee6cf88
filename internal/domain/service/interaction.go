package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

var (
	ErrAlreadyAcknowledged = errors.New("event already acknowledged")
	ErrNotAcknowledged     = errors.New("event not acknowledged yet")
)

// Interaction is the per-invocation context of one trigger event. It is owned
// by a single handler and not shared.
type Interaction struct {
	id     string
	event  inbound.TriggerEvent
	gate   *ackGate
	client outbound.Messenger
	logger *slog.Logger
}

func newInteraction(evt inbound.TriggerEvent, client outbound.Messenger, ack inbound.AckFunc, logger *slog.Logger) *Interaction {
	gate := &ackGate{ack: ack}
	id := uuid.NewString()
	return &Interaction{
		id:     id,
		event:  evt,
		gate:   gate,
		client: &gatedMessenger{gate: gate, next: client},
		logger: logger.With(
			"interaction_id", id,
			"kind", evt.Kind,
			"action_id", evt.ID,
			"user", evt.UserID,
			"channel", evt.ChannelID,
		),
	}
}

func (i *Interaction) ID() string                  { return i.id }
func (i *Interaction) Event() inbound.TriggerEvent { return i.event }
func (i *Interaction) Logger() *slog.Logger        { return i.logger }

// Client returns the outbound messenger. Every call fails with
// ErrNotAcknowledged until Ack has succeeded.
func (i *Interaction) Client() outbound.Messenger { return i.client }

// Ack acknowledges the event. Only the first call reaches the platform.
func (i *Interaction) Ack(payload any) error { return i.gate.acknowledge(payload) }

func (i *Interaction) Acked() bool { return i.gate.done() }

type ackGate struct {
	mu    sync.Mutex
	ack   inbound.AckFunc
	acked bool
	tried bool
}

func (g *ackGate) acknowledge(payload any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.tried {
		return ErrAlreadyAcknowledged
	}
	g.tried = true
	if err := g.ack(payload); err != nil {
		return fmt.Errorf("acknowledging event: %w", err)
	}
	g.acked = true
	return nil
}

func (g *ackGate) done() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.acked
}

func (g *ackGate) attempted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tried
}

// gatedMessenger refuses outbound calls before the event is acknowledged.
type gatedMessenger struct {
	gate *ackGate
	next outbound.Messenger
}

var _ outbound.Messenger = (*gatedMessenger)(nil)

func (m *gatedMessenger) check() error {
	if !m.gate.done() {
		return ErrNotAcknowledged
	}
	return nil
}

func (m *gatedMessenger) PostMessage(ctx context.Context, channelID string, v model.View) (model.MessageRef, error) {
	if err := m.check(); err != nil {
		return model.MessageRef{}, err
	}
	return m.next.PostMessage(ctx, channelID, v)
}

func (m *gatedMessenger) UpdateMessage(ctx context.Context, ref model.MessageRef, v model.View) error {
	if err := m.check(); err != nil {
		return err
	}
	return m.next.UpdateMessage(ctx, ref, v)
}

func (m *gatedMessenger) OpenView(ctx context.Context, triggerID string, v model.View) (model.ViewRef, error) {
	if err := m.check(); err != nil {
		return model.ViewRef{}, err
	}
	return m.next.OpenView(ctx, triggerID, v)
}

func (m *gatedMessenger) UpdateView(ctx context.Context, ref model.ViewRef, v model.View) (model.ViewRef, error) {
	if err := m.check(); err != nil {
		return model.ViewRef{}, err
	}
	return m.next.UpdateView(ctx, ref, v)
}

func (m *gatedMessenger) PublishHome(ctx context.Context, userID string, v model.View) error {
	if err := m.check(); err != nil {
		return err
	}
	return m.next.PublishHome(ctx, userID, v)
}
