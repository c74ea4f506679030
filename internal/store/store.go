// Package store persists admin accounts and complaints, partitioned by
// workflow. Every operation names its partition explicitly; no query ever
// spans both.
package store

import (
	"context"
	"errors"

	"github.com/complaintdesk/internal/model"
)

var (
	ErrNotFound  = errors.New("store: record not found")
	ErrDuplicate = errors.New("store: duplicate record")
)

// MaxListLimit caps a single complaint listing.
const MaxListLimit = 1000

// Store is implemented by every backend.
type Store interface {
	CountAdmins(ctx context.Context, workflow model.Workflow) (int, error)
	// CreateAdmin inserts admin into admin.Workflow. A second admin with the
	// same email in the same workflow yields ErrDuplicate.
	CreateAdmin(ctx context.Context, admin *model.Admin) error
	AdminByID(ctx context.Context, workflow model.Workflow, id string) (*model.Admin, error)
	AdminByEmail(ctx context.Context, workflow model.Workflow, email string) (*model.Admin, error)

	CreateComplaint(ctx context.Context, c *model.Complaint) error
	ComplaintByID(ctx context.Context, workflow model.Workflow, id string) (*model.Complaint, error)
	// UpdateComplaintStatus overwrites the status; last write wins.
	UpdateComplaintStatus(ctx context.Context, workflow model.Workflow, id, status string) error
	// ListComplaints returns up to limit complaints, newest first.
	ListComplaints(ctx context.Context, workflow model.Workflow, limit int) ([]model.Complaint, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
