package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonny/insight-bot/internal/domain/port/inbound"
)

var ErrDuplicateRoute = errors.New("duplicate route")

// HandlerFunc processes one interaction. The handler must acknowledge the
// event before any other side effect.
type HandlerFunc func(ctx context.Context, in *Interaction) error

// Route is the exact (kind, identifier) pair a handler is registered for.
type Route struct {
	Kind inbound.EventKind
	ID   string
}

func (r Route) String() string { return string(r.Kind) + "/" + r.ID }

// Router maps trigger events to handlers by exact match. It is populated at
// startup and read-only afterwards.
type Router struct {
	routes map[Route]HandlerFunc
}

func NewRouter() *Router {
	return &Router{routes: make(map[Route]HandlerFunc)}
}

// Handle registers h for (kind, id). Registering the same pair twice fails.
func (r *Router) Handle(kind inbound.EventKind, id string, h HandlerFunc) error {
	rt := Route{Kind: kind, ID: id}
	if _, ok := r.routes[rt]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRoute, rt)
	}
	r.routes[rt] = h
	return nil
}

// Route returns the handler registered for the event, if any.
func (r *Router) Route(evt inbound.TriggerEvent) (HandlerFunc, bool) {
	h, ok := r.routes[Route{Kind: evt.Kind, ID: evt.ID}]
	return h, ok
}

// Routes returns the number of registered routes.
func (r *Router) Routes() int { return len(r.routes) }
