// Package service implements the complaint desk operations on top of the
// store, the access guard and the notifier.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/complaintdesk/internal/auth"
	"github.com/complaintdesk/internal/model"
	"github.com/complaintdesk/internal/store"
)

type adminStore interface {
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	AdminByEmail(ctx context.Context, workflow model.Workflow, email string) (*model.Admin, error)
}

type tokenIssuer interface {
	Issue(subjectID string, workflow model.Workflow) (string, error)
}

// Session is returned by signup and login.
type Session struct {
	Token string             `json:"token"`
	Admin model.AdminSummary `json:"admin"`
}

// SignupInput carries the fields of a new admin account.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// Accounts registers and authenticates admins of both workflows.
type Accounts struct {
	admins adminStore
	hasher *auth.Hasher
	tokens tokenIssuer
	logger *slog.Logger
}

func NewAccounts(admins adminStore, hasher *auth.Hasher, tokens tokenIssuer, logger *slog.Logger) *Accounts {
	return &Accounts{admins: admins, hasher: hasher, tokens: tokens, logger: logger}
}

// NormalizeEmail trims and lowercases an admin email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an admin in workflow and returns a token for it. The email
// must not already be registered in the same workflow.
func (a *Accounts) Signup(ctx context.Context, workflow model.Workflow, in SignupInput) (*Session, error) {
	email := NormalizeEmail(in.Email)

	_, err := a.admins.AdminByEmail(ctx, workflow, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: email already registered", model.ErrValidation)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("%w: admin lookup: %v", model.ErrDependency, err)
	}

	hash, err := a.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}

	admin := &model.Admin{
		ID:           auth.NewID(),
		Workflow:     workflow,
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.admins.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", model.ErrValidation)
		}
		return nil, fmt.Errorf("%w: create admin: %v", model.ErrDependency, err)
	}

	a.logger.Info("admin registered", "workflow", workflow, "admin_id", admin.ID)
	return a.session(admin)
}

// Login checks the credentials against workflow's admins and returns a token.
func (a *Accounts) Login(ctx context.Context, workflow model.Workflow, email, password string) (*Session, error) {
	admin, err := a.admins.AdminByEmail(ctx, workflow, NormalizeEmail(email))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: admin lookup: %v", model.ErrDependency, err)
	}
	if admin == nil || !a.hasher.Verify(admin.PasswordHash, password) {
		return nil, fmt.Errorf("%w: invalid credentials", model.ErrUnauthenticated)
	}
	return a.session(admin)
}

func (a *Accounts) session(admin *model.Admin) (*Session, error) {
	token, err := a.tokens.Issue(admin.ID, admin.Workflow)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %v", model.ErrDependency, err)
	}
	return &Session{Token: token, Admin: admin.Summary()}, nil
}
