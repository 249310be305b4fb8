package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yelpcamp/apiserver/internal/store"
	"github.com/yelpcamp/apiserver/types"
)

// Reason explains why a Decision denied an action.
type Reason string

const (
	ReasonNotAuthenticated       Reason = "authentication required"
	ReasonNotFound               Reason = "resource not found"
	ReasonInsufficientPermission Reason = "insufficient permission"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func Admit() Decision {
	return Decision{Allowed: true}
}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Err maps a denial onto the service error taxonomy. It returns nil for
// admitted decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case ReasonNotAuthenticated:
		return ErrNotAuthenticated
	case ReasonNotFound:
		return ErrNotFound
	default:
		return ErrPermissionDenied
	}
}

func (d Decision) outcome() string {
	switch {
	case d.Allowed:
		return "admit"
	case d.Reason == ReasonNotAuthenticated:
		return "unauthenticated"
	case d.Reason == ReasonNotFound:
		return "not_found"
	default:
		return "forbidden"
	}
}

// AuthzRecorder observes authorization decisions.
type AuthzRecorder interface {
	RecordAuthzDecision(kind, outcome string)
}

type nopAuthzRecorder struct{}

func (nopAuthzRecorder) RecordAuthzDecision(string, string) {}

// Guard decides whether an acting user may mutate a resource of one kind.
// The same rule applies to every kind: the owner or an administrator is
// admitted, everyone else is denied.
type Guard[T any] struct {
	kind     string
	lookup   func(ctx context.Context, id int) (T, error)
	owner    func(T) int
	recorder AuthzRecorder
}

// NewGuard builds a guard that resolves targets with lookup and extracts
// their owning user id with owner. recorder may be nil.
func NewGuard[T any](kind string, lookup func(ctx context.Context, id int) (T, error), owner func(T) int, recorder AuthzRecorder) *Guard[T] {
	if recorder == nil {
		recorder = nopAuthzRecorder{}
	}
	return &Guard[T]{
		kind:     kind,
		lookup:   lookup,
		owner:    owner,
		recorder: recorder,
	}
}

// Authorize evaluates the ownership rule for actor against the resource id.
// A nil actor is denied without touching the store. The returned error is
// non-nil only when the store failed for a reason other than not found.
func (g *Guard[T]) Authorize(ctx context.Context, actor *types.User, id int) (Decision, error) {
	_, decision, err := g.Resolve(ctx, actor, id)
	return decision, err
}

// Resolve is Authorize that also returns the target when it was found.
func (g *Guard[T]) Resolve(ctx context.Context, actor *types.User, id int) (T, Decision, error) {
	var zero T

	if actor == nil {
		return zero, g.record(nil, id, Deny(ReasonNotAuthenticated)), nil
	}

	target, err := g.lookup(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, g.record(actor, id, Deny(ReasonNotFound)), nil
		}
		return zero, Decision{}, err
	}

	switch {
	case actor.ID == g.owner(target):
		return target, g.record(actor, id, Admit()), nil
	case actor.IsAdmin:
		return target, g.record(actor, id, Admit()), nil
	default:
		return target, g.record(actor, id, Deny(ReasonInsufficientPermission)), nil
	}
}

func (g *Guard[T]) record(actor *types.User, id int, decision Decision) Decision {
	g.recorder.RecordAuthzDecision(g.kind, decision.outcome())
	if !decision.Allowed {
		actorID := 0
		if actor != nil {
			actorID = actor.ID
		}
		slog.Info("authorization denied",
			slog.String("kind", g.kind),
			slog.Int("resource_id", id),
			slog.Int("actor_id", actorID),
			slog.String("reason", string(decision.Reason)),
		)
	}
	return decision
}
