// Package auth models the caller identity consulted by mutating operations.
package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches a lookup.
var ErrKeyNotFound = errors.New("api key not found")

// ScopeAdmin marks an actor allowed to mutate discount records.
const ScopeAdmin = "admin"

// Actor is the authenticated caller of a request.
type Actor struct {
	ID     string
	Name   string
	Scopes []string
}

// HasScope reports whether the actor carries the given scope.
func (a Actor) HasScope(scope string) bool {
	return slices.Contains(a.Scopes, scope)
}

// APIKeyInfo is a stored API key record.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides API key lookups.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}

// Authorizer answers whether the current caller may administer discounts.
type Authorizer interface {
	IsAdmin(ctx context.Context) bool
}

type actorKey struct{}

// ContextWithActor returns a context carrying the authenticated actor.
func ContextWithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext extracts the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// ContextAuthorizer implements Authorizer from the actor stored in the
// request context by the security handler.
type ContextAuthorizer struct{}

// IsAdmin reports whether the context's actor carries the admin scope.
func (ContextAuthorizer) IsAdmin(ctx context.Context) bool {
	a, ok := ActorFromContext(ctx)
	return ok && a.HasScope(ScopeAdmin)
}
