package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/complaintdesk/internal/model"
	"github.com/complaintdesk/internal/store"
)

type tokenDecoder interface {
	Decode(tokenString string) (*Claims, error)
}

// AdminFinder looks up an admin inside one workflow partition.
type AdminFinder interface {
	AdminByID(ctx context.Context, workflow model.Workflow, id string) (*model.Admin, error)
}

// Guard resolves a bearer token to the admin it names, for one required
// workflow at a time.
type Guard struct {
	tokens tokenDecoder
	admins AdminFinder
}

func NewGuard(tokens tokenDecoder, admins AdminFinder) *Guard {
	return &Guard{tokens: tokens, admins: admins}
}

// Authorize returns the admin named by token if the token is valid, was
// issued for workflow and the admin still exists in that partition.
//
// An undecodable token or unknown admin is ErrUnauthenticated; a valid token
// of the other workflow is ErrForbidden.
func (g *Guard) Authorize(ctx context.Context, token string, workflow model.Workflow) (*model.Admin, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", model.ErrUnauthenticated)
	}
	claims, err := g.tokens.Decode(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}
	if claims.Type != workflow {
		return nil, fmt.Errorf("%w: token issued for %s, %s required", model.ErrForbidden, claims.Type, workflow)
	}

	admin, err := g.admins.AdminByID(ctx, workflow, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: admin not found", model.ErrUnauthenticated)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: admin lookup: %v", model.ErrDependency, err)
	}
	return admin.Sanitized(), nil
}
