package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/complaintdesk/internal/auth"
	"github.com/complaintdesk/internal/mailer"
	"github.com/complaintdesk/internal/media"
	"github.com/complaintdesk/internal/model"
	"github.com/complaintdesk/internal/store"
)

type complaintStore interface {
	CreateComplaint(ctx context.Context, c *model.Complaint) error
	ComplaintByID(ctx context.Context, workflow model.Workflow, id string) (*model.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, workflow model.Workflow, id, status string) error
	ListComplaints(ctx context.Context, workflow model.Workflow, limit int) ([]model.Complaint, error)
}

type authorizer interface {
	Authorize(ctx context.Context, token string, workflow model.Workflow) (*model.Admin, error)
}

// Notifier delivers status change emails. Implementations should not block
// on the mail server.
type Notifier interface {
	SendStatusUpdate(u mailer.StatusUpdate) error
}

// Complaints handles intake, listing and status changes for both workflows.
type Complaints struct {
	store         complaintStore
	guard         authorizer
	notifier      Notifier
	logger        *slog.Logger
	maxPhotoBytes int
	now           func() time.Time
}

func NewComplaints(s complaintStore, guard authorizer, notifier Notifier, logger *slog.Logger, maxPhotoBytes int) *Complaints {
	return &Complaints{
		store:         s,
		guard:         guard,
		notifier:      notifier,
		logger:        logger,
		maxPhotoBytes: maxPhotoBytes,
		now:           time.Now,
	}
}

// Submit stores a new pending complaint and returns its id. Lab complaints
// require a lab number and may carry a photo; ICC complaints carry neither.
func (s *Complaints) Submit(ctx context.Context, workflow model.Workflow, sub model.Submission) (string, error) {
	c := &model.Complaint{
		ID:         auth.NewID(),
		Workflow:   workflow,
		Name:       strings.TrimSpace(sub.Name),
		RollNumber: strings.TrimSpace(sub.RollNumber),
		Stream:     strings.TrimSpace(sub.Stream),
		Phone:      strings.TrimSpace(sub.Phone),
		Email:      strings.TrimSpace(sub.Email),
		Body:       sub.Body,
		Status:     model.StatusPending,
		CreatedAt:  s.now().UTC(),
	}

	if workflow == model.WorkflowLab {
		lab := strings.TrimSpace(sub.LabNumber)
		if lab == "" {
			return "", fmt.Errorf("%w: lab_number is required", model.ErrValidation)
		}
		c.LabNumber = &lab

		if strings.TrimSpace(sub.Photo) != "" {
			photo, err := media.NormalizePhoto(sub.Photo, s.maxPhotoBytes)
			if err != nil {
				return "", fmt.Errorf("%w: %v", model.ErrValidation, err)
			}
			c.Photo = &photo
		}
	}

	if err := s.store.CreateComplaint(ctx, c); err != nil {
		return "", fmt.Errorf("%w: create complaint: %v", model.ErrDependency, err)
	}

	s.logger.Info("complaint submitted", "workflow", workflow, "complaint_id", c.ID, "photo", c.Photo != nil)
	return c.ID, nil
}

// List returns workflow's complaints newest first for an authorized admin.
func (s *Complaints) List(ctx context.Context, workflow model.Workflow, token string) ([]model.Complaint, error) {
	if _, err := s.guard.Authorize(ctx, token, workflow); err != nil {
		return nil, err
	}

	complaints, err := s.store.ListComplaints(ctx, workflow, store.MaxListLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: list complaints: %v", model.ErrDependency, err)
	}
	return complaints, nil
}

// UpdateStatus sets the status of complaint id to status verbatim and then
// notifies the submitter. A notification failure is logged, not returned.
func (s *Complaints) UpdateStatus(ctx context.Context, workflow model.Workflow, id, token, status string) error {
	admin, err := s.guard.Authorize(ctx, token, workflow)
	if err != nil {
		return err
	}

	c, err := s.store.ComplaintByID(ctx, workflow, id)
	if err != nil {
		return s.complaintErr(err)
	}
	if err := s.store.UpdateComplaintStatus(ctx, workflow, id, status); err != nil {
		return s.complaintErr(err)
	}

	s.logger.Info("complaint status updated",
		"workflow", workflow, "complaint_id", id, "admin_id", admin.ID, "status", status)

	err = s.notifier.SendStatusUpdate(mailer.StatusUpdate{
		To:            c.Email,
		ComplaintType: workflow.Label(),
		StudentName:   c.Name,
		Status:        status,
		ComplaintID:   id,
	})
	if err != nil {
		s.logger.Warn("status notification not sent", "workflow", workflow, "complaint_id", id, "err", err)
	}
	return nil
}

func (s *Complaints) complaintErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: complaint not found", model.ErrNotFound)
	}
	return fmt.Errorf("%w: %v", model.ErrDependency, err)
}
