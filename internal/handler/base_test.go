package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/complaintdesk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBase() BaseHandler {
	return newBaseHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
		body string
	}{
		{fmt.Errorf("%w: bad", model.ErrValidation), http.StatusBadRequest, "invalid_request"},
		{fmt.Errorf("%w: missing token", model.ErrUnauthenticated), http.StatusUnauthorized, "unauthorized"},
		{fmt.Errorf("%w: wrong workflow", model.ErrForbidden), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: complaint not found", model.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("%w: db down", model.ErrDependency), http.StatusInternalServerError, "internal_error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	h := newTestBase()
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.errorFor(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.code, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.body, body["code"])
			assert.NotContains(t, body["error"], "db down")
		})
	}
}

func TestReadJSON(t *testing.T) {
	type dst struct {
		Status string `json:"status"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"status":"resolved"}`, ""},
		{"empty", ``, "body must not be empty"},
		{"malformed", `{"status":`, "badly-formed JSON"},
		{"wrong type", `{"status":1}`, `incorrect JSON type for field "status"`},
		{"unknown key", `{"state":"x"}`, `unknown key "state"`},
		{"two values", `{"status":"a"}{"status":"b"}`, "single JSON value"},
		{"too large", `{"status":"` + strings.Repeat("x", maxJSONBytes) + `"}`, "must not be larger"},
	}
	h := newTestBase()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d dst
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := h.readJSON(httptest.NewRecorder(), r, &d)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "resolved", d.Status)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateStructNamesJSONFields(t *testing.T) {
	h := newTestBase()
	err := h.validateStruct(&complaintRequest{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roll_number: failed required")
	assert.Contains(t, err.Error(), "email: failed required")
	assert.NotContains(t, err.Error(), "name:")
}
