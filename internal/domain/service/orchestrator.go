package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
	"github.com/jonny/insight-bot/internal/domain/view"
)

type OrchestratorConfig struct {
	// RenderDelay is the settling delay before the final render of a
	// loading message.
	RenderDelay    time.Duration
	HandlerTimeout time.Duration
	FirstPageSize  int
	NextPageSize   int
	LoadingText    string
}

// Orchestrator routes trigger events to the customer, orders, next best
// actions, home and deletion flows. It implements inbound.InteractionPort.
type Orchestrator struct {
	router    *Router
	enricher  *Enricher
	scheduler *Scheduler
	cfg       OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator and registers its routes.
func NewOrchestrator(enricher *Enricher, scheduler *Scheduler, cfg OrchestratorConfig, logger *slog.Logger) (*Orchestrator, error) {
	o := &Orchestrator{
		router:    NewRouter(),
		enricher:  enricher,
		scheduler: scheduler,
		cfg:       cfg,
		logger:    logger,
	}

	routes := []struct {
		kind inbound.EventKind
		id   string
		h    HandlerFunc
	}{
		{inbound.EventShortcut, view.CallbackCustomerInfo, o.handleCustomerInfo},
		{inbound.EventSlashCommand, view.CommandInsight, o.handleInsightCommand},
		{inbound.EventBlockAction, view.ActionCheckOrders, o.handleCheckOrders},
		{inbound.EventBlockAction, view.ActionNextOrders, o.handleNextOrders},
		{inbound.EventBlockAction, view.ActionNextBestActions, o.handleNextBestActions},
		{inbound.EventPlatformEvent, view.EventAppHomeOpened, o.handleHomeOpened},
		{inbound.EventMessage, view.EventMessageDeleted, o.handleMessageDeleted},
	}
	for _, r := range routes {
		if err := o.router.Handle(r.kind, r.id, r.h); err != nil {
			return nil, fmt.Errorf("registering routes: %w", err)
		}
	}

	return o, nil
}

var _ inbound.InteractionPort = (*Orchestrator)(nil)

// Handle registers an additional handler. It fails on a duplicate route.
func (o *Orchestrator) Handle(kind inbound.EventKind, id string, h HandlerFunc) error {
	return o.router.Handle(kind, id, h)
}

// Dispatch implements inbound.InteractionPort. Unroutable events are
// acknowledged and dropped. The returned error is non-nil only when the
// acknowledgment itself failed.
func (o *Orchestrator) Dispatch(ctx context.Context, evt inbound.TriggerEvent, client outbound.Messenger, ack inbound.AckFunc) error {
	h, ok := o.router.Route(evt)
	if !ok {
		o.logger.Debug("ignoring unroutable event", "kind", evt.Kind, "action_id", evt.ID)
		if err := ack(nil); err != nil {
			return fmt.Errorf("acknowledging unroutable event: %w", err)
		}
		return nil
	}

	in := newInteraction(evt, client, ack, o.logger)

	ctx, cancel := context.WithTimeout(ctx, o.cfg.HandlerTimeout)
	defer cancel()

	err := h(ctx, in)

	if !in.gate.attempted() {
		in.logger.Error("handler returned without acknowledging the event")
		if ackErr := in.Ack(nil); ackErr != nil {
			err = errors.Join(err, ackErr)
		}
	}
	if err != nil {
		in.logger.Error("interaction failed", "error", err)
		return err
	}
	return nil
}

// customerKey identifies the customer an event refers to: the button value
// when present, else the channel, else the user.
func customerKey(evt inbound.TriggerEvent) string {
	switch {
	case evt.Value != "":
		return evt.Value
	case evt.ChannelID != "":
		return evt.ChannelID
	default:
		return evt.UserID
	}
}

func (o *Orchestrator) handleCustomerInfo(ctx context.Context, in *Interaction) error {
	if err := in.Ack(nil); err != nil {
		return err
	}
	o.runCustomerFlow(ctx, in, customerKey(in.Event()))
	return nil
}

const insightHelp = "*Insight bot commands*\n" +
	"`/insight` summarize the customer of this channel\n" +
	"`/insight customer <id>` summarize the given customer\n" +
	"`/insight help` show this message"

func (o *Orchestrator) handleInsightCommand(ctx context.Context, in *Interaction) error {
	args := strings.Fields(in.Event().Text)

	customerID := customerKey(in.Event())
	switch {
	case len(args) == 0:
	case args[0] == "customer" && len(args) <= 2:
		if len(args) == 2 {
			customerID = args[1]
		}
	case args[0] == "help":
		return in.Ack(inbound.TextReply{Text: insightHelp})
	default:
		return in.Ack(inbound.TextReply{Text: fmt.Sprintf("Unknown command `%s`. Try `/insight help`.", strings.Join(args, " "))})
	}

	if err := in.Ack(nil); err != nil {
		return err
	}
	o.runCustomerFlow(ctx, in, customerID)
	return nil
}

// runCustomerFlow posts a loading message, enriches the customer and schedules
// the delayed final render of that message.
func (o *Orchestrator) runCustomerFlow(ctx context.Context, in *Interaction, customerID string) {
	evt := in.Event()
	logger := in.Logger().With("customer_id", customerID)

	channel := evt.ChannelID
	if channel == "" {
		channel = evt.UserID
	}

	loading, err := view.Build(view.KindLoading, view.Input{Text: o.cfg.LoadingText})
	if err != nil {
		logger.Error("building loading view", "error", err)
		return
	}

	ref, err := in.Client().PostMessage(ctx, channel, loading)
	if err != nil {
		logger.Error("posting loading message", "error", err)
		return
	}

	res, err := o.enricher.Enrich(ctx, EnrichRequest{Topic: TopicCustomer, CustomerID: customerID})
	if err != nil {
		logger.Error("enriching customer", "error", err)
		o.renderFailure(in, ref)
		return
	}

	final, err := view.Build(view.KindCustomerResult, view.Input{Customer: res.Customer, Summary: res.Summary})
	if err != nil {
		logger.Error("building customer view", "error", err)
		o.renderFailure(in, ref)
		return
	}

	o.scheduleRender(in, ref, final, o.cfg.RenderDelay)
}

func (o *Orchestrator) renderFailure(in *Interaction, ref model.MessageRef) {
	failure, err := view.Build(view.KindFailure, view.Input{})
	if err != nil {
		in.Logger().Error("building failure view", "error", err)
		return
	}
	o.scheduleRender(in, ref, failure, 0)
}

// scheduleRender replaces the message at ref with v once delay has elapsed.
// The render outlives the handler and is tracked by the scheduler.
func (o *Orchestrator) scheduleRender(in *Interaction, ref model.MessageRef, v model.View, delay time.Duration) {
	client := in.Client()
	logger := in.Logger().With("message", ref.Key())

	_, err := o.scheduler.Schedule(ref.Key(), delay, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, o.cfg.HandlerTimeout)
		defer cancel()

		err := client.UpdateMessage(ctx, ref, v)
		if errors.Is(err, outbound.ErrMessageGone) {
			logger.Warn("message no longer available, skipping render", "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("updating message %s: %w", ref.Key(), err)
		}
		logger.Debug("message rendered")
		return nil
	})
	if err != nil {
		logger.Error("scheduling render", "error", err)
	}
}

func (o *Orchestrator) handleCheckOrders(ctx context.Context, in *Interaction) error {
	if err := in.Ack(nil); err != nil {
		return err
	}

	customerID := customerKey(in.Event())
	vref, ok := o.openLoadingModal(ctx, in, view.OrdersModalTitle)
	if !ok {
		return nil
	}

	cur := model.NewCursor(customerID, o.cfg.FirstPageSize, o.cfg.NextPageSize)
	o.renderOrders(ctx, in, vref, cur)
	return nil
}

func (o *Orchestrator) handleNextOrders(ctx context.Context, in *Interaction) error {
	if err := in.Ack(nil); err != nil {
		return err
	}

	evt := in.Event()
	cur, err := model.DecodeCursor(evt.Value)
	if err != nil {
		in.Logger().Warn("dropping next page request", "error", err)
		return nil
	}
	next, _, ok := cur.Advance()
	if !ok {
		in.Logger().Debug("cursor already on the last page")
		return nil
	}
	if evt.View == nil || evt.View.IsZero() {
		in.Logger().Warn("next page request without a view")
		return nil
	}

	loading, err := view.Build(view.KindLoadingModal, view.Input{Title: view.OrdersModalTitle, Text: o.cfg.LoadingText})
	if err != nil {
		in.Logger().Error("building loading modal", "error", err)
		return nil
	}
	vref, err := in.Client().UpdateView(ctx, *evt.View, loading)
	if err != nil {
		in.Logger().Error("updating modal to loading", "error", err)
		return nil
	}

	o.renderOrders(ctx, in, vref, next)
	return nil
}

// renderOrders fills the modal at vref with the slice of orders cur points at.
func (o *Orchestrator) renderOrders(ctx context.Context, in *Interaction, vref model.ViewRef, cur model.Cursor) {
	logger := in.Logger().With("customer_id", cur.CustomerID, "offset", cur.Offset)

	res, err := o.enricher.Enrich(ctx, EnrichRequest{Topic: TopicOrders, CustomerID: cur.CustomerID, Slice: cur.Slice()})
	if err != nil {
		logger.Error("enriching orders", "error", err)
		o.renderFailureModal(ctx, in, vref, view.OrdersModalTitle)
		return
	}

	cur = cur.WithTotal(res.Orders.Total)
	v, err := view.Build(view.KindOrdersModal, view.Input{Orders: res.Orders, Summary: res.Summary, Cursor: &cur})
	if err != nil {
		logger.Error("building orders modal", "error", err)
		o.renderFailureModal(ctx, in, vref, view.OrdersModalTitle)
		return
	}

	if _, err := in.Client().UpdateView(ctx, vref, v); err != nil {
		logger.Error("updating orders modal", "error", err)
	}
}

func (o *Orchestrator) handleNextBestActions(ctx context.Context, in *Interaction) error {
	if err := in.Ack(nil); err != nil {
		return err
	}

	customerID := customerKey(in.Event())
	logger := in.Logger().With("customer_id", customerID)

	vref, ok := o.openLoadingModal(ctx, in, view.NextActionsModalTitle)
	if !ok {
		return nil
	}

	res, err := o.enricher.Enrich(ctx, EnrichRequest{Topic: TopicNextActions, CustomerID: customerID})
	if err != nil {
		logger.Error("enriching next best actions", "error", err)
		o.renderFailureModal(ctx, in, vref, view.NextActionsModalTitle)
		return nil
	}

	v, err := view.Build(view.KindNextActionsModal, view.Input{Customer: res.Customer, Summary: res.Summary})
	if err != nil {
		logger.Error("building next best actions modal", "error", err)
		o.renderFailureModal(ctx, in, vref, view.NextActionsModalTitle)
		return nil
	}
	if _, err := in.Client().UpdateView(ctx, vref, v); err != nil {
		logger.Error("updating next best actions modal", "error", err)
	}
	return nil
}

// openLoadingModal opens a modal right away because the trigger token of the
// event expires within seconds.
func (o *Orchestrator) openLoadingModal(ctx context.Context, in *Interaction, title string) (model.ViewRef, bool) {
	evt := in.Event()
	if evt.TriggerID == "" {
		in.Logger().Warn("cannot open modal without a trigger id")
		return model.ViewRef{}, false
	}

	loading, err := view.Build(view.KindLoadingModal, view.Input{Title: title, Text: o.cfg.LoadingText})
	if err != nil {
		in.Logger().Error("building loading modal", "error", err)
		return model.ViewRef{}, false
	}
	vref, err := in.Client().OpenView(ctx, evt.TriggerID, loading)
	if err != nil {
		in.Logger().Error("opening modal", "error", err)
		return model.ViewRef{}, false
	}
	return vref, true
}

func (o *Orchestrator) renderFailureModal(ctx context.Context, in *Interaction, vref model.ViewRef, title string) {
	v, err := view.Build(view.KindFailureModal, view.Input{Title: title})
	if err != nil {
		in.Logger().Error("building failure modal", "error", err)
		return
	}
	if _, err := in.Client().UpdateView(ctx, vref, v); err != nil {
		in.Logger().Error("updating modal with failure", "error", err)
	}
}

func (o *Orchestrator) handleHomeOpened(ctx context.Context, in *Interaction) error {
	if err := in.Ack(nil); err != nil {
		return err
	}

	evt := in.Event()
	// Value carries the tab that was opened.
	if evt.Value != "" && evt.Value != "home" {
		return nil
	}

	v, err := view.Build(view.KindHome, view.Input{UserID: evt.UserID})
	if err != nil {
		in.Logger().Error("building home view", "error", err)
		return nil
	}
	if err := in.Client().PublishHome(ctx, evt.UserID, v); err != nil {
		in.Logger().Error("publishing home view", "error", err)
	}
	return nil
}

func (o *Orchestrator) handleMessageDeleted(_ context.Context, in *Interaction) error {
	if err := in.Ack(nil); err != nil {
		return err
	}

	evt := in.Event()
	if evt.Message == nil || evt.Message.IsZero() {
		return nil
	}
	if o.scheduler.Cancel(evt.Message.Key()) {
		in.Logger().Info("canceled render for deleted message", "message", evt.Message.Key())
	}
	return nil
}
