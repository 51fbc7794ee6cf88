package slackbot

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
)

// Config holds Slack bot configuration.
type Config struct {
	BotToken string
	AppToken string
	Debug    bool
	// APIURL overrides the Slack Web API endpoint.
	APIURL string
}

// Bot handles incoming Slack events via Socket Mode.
type Bot struct {
	socketMode  *socketmode.Client
	interaction inbound.InteractionPort
	messenger   outbound.Messenger
	logger      *slog.Logger
	inflight    sync.WaitGroup
}

// NewBot creates a new Bot with Socket Mode enabled. messenger is handed to
// every dispatched event.
func NewBot(cfg Config, interaction inbound.InteractionPort, messenger outbound.Messenger, logger *slog.Logger) *Bot {
	opts := []slackapi.Option{slackapi.OptionAppLevelToken(cfg.AppToken)}
	if cfg.APIURL != "" {
		opts = append(opts, slackapi.OptionAPIURL(cfg.APIURL))
	}
	client := slackapi.New(cfg.BotToken, opts...)
	sm := socketmode.New(client, socketmode.OptionDebug(cfg.Debug))
	return &Bot{
		socketMode:  sm,
		interaction: interaction,
		messenger:   messenger,
		logger:      logger,
	}
}

// Start begins processing Slack events. It blocks until ctx is cancelled and
// the events being handled have been dispatched.
func (b *Bot) Start(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.handleEvents(ctx)
	}()

	err := b.socketMode.RunContext(ctx)
	<-done
	b.inflight.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleEvents dispatches incoming Socket Mode events. Each event is handled
// in its own goroutine.
func (b *Bot) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeEventsAPI, socketmode.EventTypeInteractive, socketmode.EventTypeSlashCommand:
				b.inflight.Add(1)
				go func() {
					defer b.inflight.Done()
					b.process(ctx, evt)
				}()
			case socketmode.EventTypeConnecting, socketmode.EventTypeConnected, socketmode.EventTypeHello:
				b.logger.Debug("socket mode connection event", "type", evt.Type)
			case socketmode.EventTypeConnectionError, socketmode.EventTypeInvalidAuth, socketmode.EventTypeIncomingError:
				b.logger.Error("socket mode error", "type", evt.Type, "data", evt.Data)
			default:
				b.ackEnvelope(ctx, evt)
			}
		}
	}
}

func (b *Bot) ackEnvelope(ctx context.Context, evt socketmode.Event) {
	if evt.Request == nil || evt.Request.EnvelopeID == "" {
		return
	}
	if err := b.socketMode.AckCtx(ctx, evt.Request.EnvelopeID, nil); err != nil {
		b.logger.Error("acknowledging envelope", "type", evt.Type, "error", err)
	}
}

func (b *Bot) process(ctx context.Context, evt socketmode.Event) {
	if evt.Request == nil {
		return
	}
	envelopeID := evt.Request.EnvelopeID
	ack := onceAck(func(payload any) error {
		return b.socketMode.AckCtx(ctx, envelopeID, payload)
	})

	events := translate(evt)
	if len(events) == 0 {
		if err := ack(nil); err != nil {
			b.logger.Error("acknowledging envelope", "type", evt.Type, "error", err)
		}
		return
	}

	for _, te := range events {
		if err := b.interaction.Dispatch(ctx, te, b.messenger, ack); err != nil {
			b.logger.Error("dispatching event", "kind", te.Kind, "action_id", te.ID, "error", err)
		}
	}
}

func translate(evt socketmode.Event) []inbound.TriggerEvent {
	switch data := evt.Data.(type) {
	case slackevents.EventsAPIEvent:
		if te, ok := FromEventsAPI(data); ok {
			return []inbound.TriggerEvent{te}
		}
	case slackapi.InteractionCallback:
		return FromInteraction(data)
	case slackapi.SlashCommand:
		return []inbound.TriggerEvent{FromSlashCommand(data)}
	}
	return nil
}
