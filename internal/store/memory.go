package store

import (
	"context"
	"sort"
	"sync"

	"github.com/complaintdesk/internal/model"
)

// Memory is an in-process Store used for development and tests. Data does not
// survive a restart.
type Memory struct {
	mu         sync.RWMutex
	admins     map[model.Workflow][]model.Admin
	complaints map[model.Workflow][]model.Complaint
}

func NewMemory() *Memory {
	return &Memory{
		admins:     make(map[model.Workflow][]model.Admin),
		complaints: make(map[model.Workflow][]model.Complaint),
	}
}

func (m *Memory) CountAdmins(_ context.Context, workflow model.Workflow) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.admins[workflow]), nil
}

func (m *Memory) CreateAdmin(_ context.Context, admin *model.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins[admin.Workflow] {
		if a.Email == admin.Email || a.ID == admin.ID {
			return ErrDuplicate
		}
	}
	m.admins[admin.Workflow] = append(m.admins[admin.Workflow], *admin)
	return nil
}

func (m *Memory) AdminByID(_ context.Context, workflow model.Workflow, id string) (*model.Admin, error) {
	return m.findAdmin(workflow, func(a *model.Admin) bool { return a.ID == id })
}

func (m *Memory) AdminByEmail(_ context.Context, workflow model.Workflow, email string) (*model.Admin, error) {
	return m.findAdmin(workflow, func(a *model.Admin) bool { return a.Email == email })
}

func (m *Memory) findAdmin(workflow model.Workflow, match func(*model.Admin) bool) (*model.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := range m.admins[workflow] {
		if a := m.admins[workflow][i]; match(&a) {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateComplaint(_ context.Context, c *model.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.complaints[c.Workflow] {
		if existing.ID == c.ID {
			return ErrDuplicate
		}
	}
	m.complaints[c.Workflow] = append(m.complaints[c.Workflow], *c)
	return nil
}

func (m *Memory) ComplaintByID(_ context.Context, workflow model.Workflow, id string) (*model.Complaint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.complaints[workflow] {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateComplaintStatus(_ context.Context, workflow model.Workflow, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.complaints[workflow] {
		if m.complaints[workflow][i].ID == id {
			m.complaints[workflow][i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListComplaints(_ context.Context, workflow model.Workflow, limit int) ([]model.Complaint, error) {
	m.mu.RLock()
	stored := m.complaints[workflow]
	out := append([]model.Complaint(nil), stored...)
	m.mu.RUnlock()

	// Ties on created_at break on id, descending, like the SQL and Mongo stores.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close(context.Context) error { return nil }
