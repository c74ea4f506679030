package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/complaintdesk/internal/model"
	"github.com/complaintdesk/internal/service"
)

type accountService interface {
	Signup(ctx context.Context, workflow model.Workflow, in service.SignupInput) (*service.Session, error)
	Login(ctx context.Context, workflow model.Workflow, email, password string) (*service.Session, error)
}

type signupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name" validate:"required,max=200"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// AuthHandler serves admin signup and login for one workflow per route.
type AuthHandler struct {
	BaseHandler
	accounts accountService
}

func NewAuthHandler(logger *slog.Logger, accounts accountService) *AuthHandler {
	return &AuthHandler{BaseHandler: newBaseHandler(logger), accounts: accounts}
}

// Signup registers an admin of workflow and returns a token.
func (h *AuthHandler) Signup(workflow model.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := h.readJSON(w, r, &req); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}
		if err := h.validateStruct(&req); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}

		session, err := h.accounts.Signup(r.Context(), workflow, service.SignupInput{
			Email:    req.Email,
			Password: req.Password,
			Name:     req.Name,
		})
		if err != nil {
			h.errorFor(w, r, err)
			return
		}
		if err := h.writeJSON(w, http.StatusOK, session, nil); err != nil {
			h.serverErrorResponse(w, r, err)
		}
	}
}

// Login authenticates an admin of workflow and returns a token.
func (h *AuthHandler) Login(workflow model.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := h.readJSON(w, r, &req); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}
		if err := h.validateStruct(&req); err != nil {
			h.badRequestResponse(w, r, err)
			return
		}

		session, err := h.accounts.Login(r.Context(), workflow, req.Email, req.Password)
		if err != nil {
			h.errorFor(w, r, err)
			return
		}
		if err := h.writeJSON(w, http.StatusOK, session, nil); err != nil {
			h.serverErrorResponse(w, r, err)
		}
	}
}
