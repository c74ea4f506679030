package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/complaintdesk/internal/model"
)

// AdminCreator is the minimal interface needed for seeding the first admin.
type AdminCreator interface {
	CountAdmins(ctx context.Context, workflow model.Workflow) (int, error)
	CreateAdmin(ctx context.Context, admin *model.Admin) error
}

// SeedAdmin holds the bootstrap credentials read from the environment.
type SeedAdmin struct {
	Workflow model.Workflow
	Email    string
	Password string
	Name     string
}

// SeedFirstAdmin creates the initial admin of seed.Workflow if that partition
// has no admins yet. Failures are logged; startup continues.
func SeedFirstAdmin(ctx context.Context, admins AdminCreator, hasher *Hasher, seed SeedAdmin) {
	if seed.Email == "" || seed.Password == "" || seed.Workflow == "" {
		return
	}

	count, err := admins.CountAdmins(ctx, seed.Workflow)
	if err != nil {
		slog.Error("seed: failed to count admins", "workflow", seed.Workflow, "err", err)
		return
	}
	if count > 0 {
		return
	}

	hash, err := hasher.Hash(seed.Password)
	if err != nil {
		slog.Error("seed: failed to hash password", "err", err)
		return
	}

	name := seed.Name
	if name == "" {
		name = "Administrator"
	}
	admin := &model.Admin{
		ID:           NewID(),
		Workflow:     seed.Workflow,
		Email:        strings.ToLower(strings.TrimSpace(seed.Email)),
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := admins.CreateAdmin(ctx, admin); err != nil {
		slog.Error("seed: failed to create admin", "workflow", seed.Workflow, "err", err)
		return
	}
	slog.Info("seed: created first admin", "workflow", seed.Workflow, "email", seed.Email)
}
