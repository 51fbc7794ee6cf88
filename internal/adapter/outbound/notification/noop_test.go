package notification

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/jonny/insight-bot/internal/domain/model"
)

func TestLogMessenger(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMessenger(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()
	view := model.View{FallbackText: "hello", Blocks: []model.Block{model.SectionBlock("hello")}}

	first, err := m.PostMessage(ctx, "C1", view)
	if err != nil {
		t.Fatalf("PostMessage() error: %v", err)
	}
	second, _ := m.PostMessage(ctx, "C1", view)
	if first == second {
		t.Errorf("expected distinct message refs, got %+v twice", first)
	}
	if err := m.UpdateMessage(ctx, first, view); err != nil {
		t.Fatalf("UpdateMessage() error: %v", err)
	}

	vref, err := m.OpenView(ctx, "trigger", view)
	if err != nil {
		t.Fatalf("OpenView() error: %v", err)
	}
	updated, err := m.UpdateView(ctx, vref, view)
	if err != nil {
		t.Fatalf("UpdateView() error: %v", err)
	}
	if updated.ID != vref.ID || updated.Hash == vref.Hash {
		t.Errorf("expected same view with new hash, got %+v from %+v", updated, vref)
	}

	if err := m.PublishHome(ctx, "U1", view); err != nil {
		t.Fatalf("PublishHome() error: %v", err)
	}

	for _, want := range []string{"log: post message", "log: update view", "log: publish home"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in log output", want)
		}
	}
}
