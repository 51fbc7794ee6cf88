package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonny/insight-bot/internal/domain/model"
	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
	"github.com/jonny/insight-bot/internal/domain/prompt"
	"github.com/jonny/insight-bot/internal/domain/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recorder keeps the order of observable side effects across fakes.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) indexOf(call string) int {
	for i, c := range r.list() {
		if c == call {
			return i
		}
	}
	return -1
}

// --- messenger ---

type messageUpdate struct {
	Ref  model.MessageRef
	View model.View
}

type fakeMessenger struct {
	rec *recorder

	mu          sync.Mutex
	seq         int
	posts       map[string]model.View
	opened      []model.View
	viewUpdates []model.View
	homes       []model.View
	updateErr   error

	updates chan messageUpdate
}

func newFakeMessenger(rec *recorder) *fakeMessenger {
	return &fakeMessenger{
		rec:     rec,
		posts:   make(map[string]model.View),
		updates: make(chan messageUpdate, 16),
	}
}

var _ outbound.Messenger = (*fakeMessenger)(nil)

func (m *fakeMessenger) PostMessage(_ context.Context, channelID string, v model.View) (model.MessageRef, error) {
	m.rec.add("post")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ref := model.MessageRef{Channel: channelID, Timestamp: fmt.Sprintf("1700000000.%06d", m.seq)}
	m.posts[ref.Key()] = v
	return ref, nil
}

func (m *fakeMessenger) UpdateMessage(_ context.Context, ref model.MessageRef, v model.View) error {
	m.rec.add("update")
	m.mu.Lock()
	err := m.updateErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.updates <- messageUpdate{Ref: ref, View: v}
	return nil
}

func (m *fakeMessenger) OpenView(_ context.Context, triggerID string, v model.View) (model.ViewRef, error) {
	m.rec.add("open_view")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = append(m.opened, v)
	return model.ViewRef{ID: "V-" + triggerID, Hash: "h0"}, nil
}

func (m *fakeMessenger) UpdateView(_ context.Context, ref model.ViewRef, v model.View) (model.ViewRef, error) {
	m.rec.add("update_view")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewUpdates = append(m.viewUpdates, v)
	return model.ViewRef{ID: ref.ID, Hash: fmt.Sprintf("h%d", len(m.viewUpdates))}, nil
}

func (m *fakeMessenger) PublishHome(_ context.Context, _ string, v model.View) error {
	m.rec.add("publish_home")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.homes = append(m.homes, v)
	return nil
}

func (m *fakeMessenger) lastViewUpdate(t *testing.T) model.View {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.viewUpdates, "expected a view update")
	return m.viewUpdates[len(m.viewUpdates)-1]
}

func (m *fakeMessenger) waitUpdate(t *testing.T, timeout time.Duration) messageUpdate {
	t.Helper()
	select {
	case u := <-m.updates:
		return u
	case <-time.After(timeout):
		t.Fatal("timed out waiting for message update")
		return messageUpdate{}
	}
}

// --- summarizer ---

type fakeSummarizer struct {
	rec  *recorder
	text string
	err  error

	mu      sync.Mutex
	prompts []string
}

var _ outbound.Summarizer = (*fakeSummarizer)(nil)

func (s *fakeSummarizer) Summarize(_ context.Context, req outbound.SummaryRequest) (string, error) {
	s.rec.add("summarize")
	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *fakeSummarizer) HealthCheck(context.Context) error { return nil }

func (s *fakeSummarizer) ModelInfo() outbound.ModelInfo {
	return outbound.ModelInfo{Provider: "fake", Model: "fake"}
}

func (s *fakeSummarizer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// --- data source ---

type fakeDataSource struct {
	rec         *recorder
	historySize int
	err         error
}

var _ outbound.DataSource = (*fakeDataSource)(nil)

var errDataSource = errors.New("data source unavailable")

func (d *fakeDataSource) CustomerSnapshot(_ context.Context, customerID string) (model.CustomerSnapshot, error) {
	d.rec.add("data")
	if d.err != nil {
		return model.CustomerSnapshot{}, d.err
	}
	return model.CustomerSnapshot{
		CustomerID:       customerID,
		OrdersPlaced:     len(customerID),
		LifetimeAmount:   123456,
		LastVisit:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		TasksOutstanding: 2,
	}, nil
}

func (d *fakeDataSource) Orders(_ context.Context, q outbound.OrderQuery) (model.OrderBatch, error) {
	d.rec.add("data")
	if d.err != nil {
		return model.OrderBatch{}, d.err
	}
	all := make([]model.Order, d.historySize)
	for i := range all {
		all[i] = model.Order{
			ID:       fmt.Sprintf("o%d", i),
			PlacedAt: time.Date(2024, 6, 30-i, 12, 0, 0, 0, time.UTC),
			Amount:   model.Money(1000 + i),
			Product:  fmt.Sprintf("Product %d", i+1),
		}
	}
	return model.OrderBatch{
		CustomerID: q.CustomerID,
		Offset:     q.Offset,
		Total:      len(all),
		Orders:     model.PageOf(all, model.Slice{Offset: q.Offset, Limit: q.Limit}),
	}, nil
}

// --- harness ---

type harness struct {
	rec        *recorder
	messenger  *fakeMessenger
	summarizer *fakeSummarizer
	data       *fakeDataSource
	scheduler  *service.Scheduler
	orch       *service.Orchestrator
}

func newHarness(t *testing.T, renderDelay time.Duration) *harness {
	t.Helper()

	rec := &recorder{}
	h := &harness{
		rec:        rec,
		messenger:  newFakeMessenger(rec),
		summarizer: &fakeSummarizer{rec: rec, text: "A loyal customer with steady orders."},
		data:       &fakeDataSource{rec: rec, historySize: 5},
		scheduler:  service.NewScheduler(discardLogger()),
	}
	t.Cleanup(h.scheduler.Close)

	prompts, err := prompt.NewBuilder(50)
	require.NoError(t, err)

	enricher := service.NewEnricher(h.data, h.summarizer, prompts, service.EnricherConfig{MaxTokens: 50, MaxSummaryChars: 500}, discardLogger())
	h.orch, err = service.NewOrchestrator(enricher, h.scheduler, service.OrchestratorConfig{
		RenderDelay:    renderDelay,
		HandlerTimeout: 5 * time.Second,
		FirstPageSize:  3,
		NextPageSize:   2,
		LoadingText:    "Getting and summarizing information... :hourglass_flowing_sand:",
	}, discardLogger())
	require.NoError(t, err)

	return h
}

// ack returns an AckFunc recording the call and the payload.
func (h *harness) ack(payload *any) inbound.AckFunc {
	return func(p any) error {
		h.rec.add("ack")
		if payload != nil {
			*payload = p
		}
		return nil
	}
}

func (h *harness) dispatch(t *testing.T, evt inbound.TriggerEvent) {
	t.Helper()
	require.NoError(t, h.orch.Dispatch(context.Background(), evt, h.messenger, h.ack(nil)))
}
