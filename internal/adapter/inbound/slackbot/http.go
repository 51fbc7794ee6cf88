package slackbot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/jonny/insight-bot/internal/domain/port/inbound"
	"github.com/jonny/insight-bot/internal/domain/port/outbound"
	"github.com/jonny/insight-bot/pkg/apierror"
)

// ErrAckExpired is returned by an HTTP-mode ack that arrives after the
// response has already been written.
var ErrAckExpired = errors.New("acknowledgement window expired")

// HTTPHandler receives Slack Events API, interactivity and slash command
// requests over HTTP. Request signatures are verified by middleware in front
// of it.
type HTTPHandler struct {
	interaction inbound.InteractionPort
	messenger   outbound.Messenger
	ackTimeout  time.Duration
	logger      *slog.Logger
	inflight    sync.WaitGroup
}

func NewHTTPHandler(interaction inbound.InteractionPort, messenger outbound.Messenger, ackTimeout time.Duration, logger *slog.Logger) *HTTPHandler {
	return &HTTPHandler{
		interaction: interaction,
		messenger:   messenger,
		ackTimeout:  ackTimeout,
		logger:      logger,
	}
}

// Register mounts the Slack endpoints on mux:
//
//	POST /slack/events        - Events API callbacks and URL verification
//	POST /slack/interactions  - Shortcuts and block actions
//	POST /slack/commands      - Slash commands
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /slack/events", h.handleEvents)
	mux.HandleFunc("POST /slack/interactions", h.handleInteractions)
	mux.HandleFunc("POST /slack/commands", h.handleCommands)
}

// Wait blocks until every dispatched event has returned.
func (h *HTTPHandler) Wait() {
	h.inflight.Wait()
}

func (h *HTTPHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierror.Write(w, apierror.BadRequest("failed to read request body"))
		return
	}

	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		apierror.Write(w, apierror.BadRequest("invalid JSON payload"))
		return
	}

	if envelope.Type == slackevents.URLVerification {
		var challenge slackevents.EventsAPIURLVerificationEvent
		if err := json.Unmarshal(body, &challenge); err != nil {
			apierror.Write(w, apierror.BadRequest("invalid url_verification payload"))
			return
		}
		writeJSON(w, slackevents.ChallengeResponse{Challenge: challenge.Challenge})
		return
	}

	ev, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		apierror.Write(w, apierror.BadRequest("unparseable event"))
		return
	}

	var events []inbound.TriggerEvent
	if te, ok := FromEventsAPI(ev); ok {
		events = append(events, te)
	}
	h.serve(w, r, events)
}

func (h *HTTPHandler) handleInteractions(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apierror.Write(w, apierror.BadRequest("invalid form body"))
		return
	}

	var cb slackapi.InteractionCallback
	if err := json.Unmarshal([]byte(r.PostForm.Get("payload")), &cb); err != nil {
		apierror.Write(w, apierror.BadRequest("invalid interaction payload"))
		return
	}
	h.serve(w, r, FromInteraction(cb))
}

func (h *HTTPHandler) handleCommands(w http.ResponseWriter, r *http.Request) {
	cmd, err := slackapi.SlashCommandParse(r)
	if err != nil {
		apierror.Write(w, apierror.BadRequest("invalid slash command"))
		return
	}
	h.serve(w, r, []inbound.TriggerEvent{FromSlashCommand(cmd)})
}

// serve dispatches events in the background and answers the request with the
// first ack payload, or with an empty 200 once the dispatch returns or the
// ack window closes.
func (h *HTTPHandler) serve(w http.ResponseWriter, r *http.Request, events []inbound.TriggerEvent) {
	if len(events) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	acked := make(chan any)
	expired := make(chan struct{})
	done := make(chan struct{})

	ack := onceAck(func(payload any) error {
		select {
		case acked <- payload:
			return nil
		case <-expired:
			return ErrAckExpired
		}
	})

	ctx := context.WithoutCancel(r.Context())
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		defer close(done)
		for _, te := range events {
			if err := h.interaction.Dispatch(ctx, te, h.messenger, ack); err != nil {
				h.logger.Error("dispatching event", "kind", te.Kind, "action_id", te.ID, "error", err)
			}
		}
	}()

	timer := time.NewTimer(h.ackTimeout)
	defer timer.Stop()

	select {
	case payload := <-acked:
		close(expired)
		if payload == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		writeJSON(w, payload)
	case <-done:
		close(expired)
		w.WriteHeader(http.StatusOK)
	case <-timer.C:
		close(expired)
		h.logger.Warn("ack window expired", "action_id", events[0].ID, "timeout", h.ackTimeout)
		w.WriteHeader(http.StatusOK)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
