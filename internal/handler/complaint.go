package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	appmw "github.com/complaintdesk/internal/middleware"
	"github.com/complaintdesk/internal/model"
)

type complaintService interface {
	Submit(ctx context.Context, workflow model.Workflow, sub model.Submission) (string, error)
	List(ctx context.Context, workflow model.Workflow, token string) ([]model.Complaint, error)
	UpdateStatus(ctx context.Context, workflow model.Workflow, id, token, status string) error
}

type complaintRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	RollNumber  string `json:"roll_number" validate:"required,max=100"`
	Stream      string `json:"stream" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"required,max=50"`
	Email       string `json:"email" validate:"required,email,max=254"`
	Complaint   string `json:"complaint" validate:"required"`
	LabNumber   string `json:"lab_number" validate:"max=100"`
	PhotoBase64 string `json:"photo_base64"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,max=100"`
}

// ComplaintHandler serves complaint intake, listing and status updates.
type ComplaintHandler struct {
	BaseHandler
	complaints   complaintService
	maxBodyBytes int64
}

// NewComplaintHandler sizes the submit body limit to fit a base64 photo of
// maxPhotoBytes plus the text fields.
func NewComplaintHandler(logger *slog.Logger, complaints complaintService, maxPhotoBytes int) *ComplaintHandler {
	return &ComplaintHandler{
		BaseHandler:  newBaseHandler(logger),
		complaints:   complaints,
		maxBodyBytes: int64(maxPhotoBytes)*4/3 + maxJSONBytes,
	}
}

// Submit accepts a complaint from a student. No authentication is required.
func (h *ComplaintHandler) Submit(workflow model.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req complaintRequest
		if err := h.readJSONLimit(w, r, &req, h.maxBodyBytes); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}
		if err := h.validateStruct(&req); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}

		id, err := h.complaints.Submit(r.Context(), workflow, model.Submission{
			Name:       req.Name,
			RollNumber: req.RollNumber,
			Stream:     req.Stream,
			Phone:      req.Phone,
			Email:      req.Email,
			Body:       req.Complaint,
			LabNumber:  req.LabNumber,
			Photo:      req.PhotoBase64,
		})
		if err != nil {
			h.errorFor(w, r, err)
			return
		}

		env := envelope{"message": "Complaint submitted successfully", "complaint_id": id}
		if err := h.writeJSON(w, http.StatusOK, env, nil); err != nil {
			h.serverErrorResponse(w, r, err)
		}
	}
}

// List returns the workflow's complaints, newest first.
func (h *ComplaintHandler) List(workflow model.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		complaints, err := h.complaints.List(r.Context(), workflow, appmw.TokenFromContext(r.Context()))
		if err != nil {
			h.errorFor(w, r, err)
			return
		}
		if complaints == nil {
			complaints = []model.Complaint{}
		}
		if err := h.writeJSON(w, http.StatusOK, complaints, nil); err != nil {
			h.serverErrorResponse(w, r, err)
		}
	}
}

// UpdateStatus sets the status of the complaint named in the path.
func (h *ComplaintHandler) UpdateStatus(workflow model.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := h.readJSON(w, r, &req); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}
		if err := h.validateStruct(&req); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}

		id := chi.URLParam(r, "id")
		err := h.complaints.UpdateStatus(r.Context(), workflow, id, appmw.TokenFromContext(r.Context()), req.Status)
		if err != nil {
			h.errorFor(w, r, err)
			return
		}

		if err := h.writeJSON(w, http.StatusOK, envelope{"message": "Status updated successfully"}, nil); err != nil {
			h.serverErrorResponse(w, r, err)
		}
	}
}
