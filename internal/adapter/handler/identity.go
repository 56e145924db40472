package handler

import (
	"context"
	"strings"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Identity is asserted by the gateway in front of this service; these
// headers (and the matching gRPC metadata keys) carry it.
const (
	headerUserID    = "X-User-ID"
	headerUserRole  = "X-User-Role"
	headerUserEmail = "X-User-Email"
)

type actorKey struct{}

func withActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey{}).(domain.Actor)
	return actor
}

func newActor(id, role, email string) (domain.Actor, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Actor{}, false
	}
	r := domain.RoleUser
	if strings.EqualFold(strings.TrimSpace(role), string(domain.RoleAdmin)) {
		r = domain.RoleAdmin
	}
	return domain.Actor{ID: id, Role: r, Email: strings.TrimSpace(email)}, true
}
