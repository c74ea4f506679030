package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/complaintdesk/internal/auth"
	"github.com/complaintdesk/internal/mailer"
	"github.com/complaintdesk/internal/model"
	"github.com/complaintdesk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeNotifier struct {
	mu      sync.Mutex
	updates []mailer.StatusUpdate
	err     error
}

func (f *fakeNotifier) SendStatusUpdate(u mailer.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return f.err
}

func (f *fakeNotifier) sent() []mailer.StatusUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.StatusUpdate(nil), f.updates...)
}

type fixture struct {
	store      *store.Memory
	codec      *auth.TokenCodec
	accounts   *Accounts
	complaints *Complaints
	notifier   *fakeNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := store.NewMemory()
	codec := auth.NewTokenCodec(testSecret, time.Hour)
	notifier := &fakeNotifier{}
	return &fixture{
		store:      mem,
		codec:      codec,
		accounts:   NewAccounts(mem, auth.NewHasher(bcrypt.MinCost), codec, logger),
		complaints: NewComplaints(mem, auth.NewGuard(codec, mem), notifier, logger, 5<<20),
		notifier:   notifier,
	}
}

func (f *fixture) signup(t *testing.T, wf model.Workflow, email string) *Session {
	t.Helper()
	s, err := f.accounts.Signup(context.Background(), wf, SignupInput{Email: email, Password: "pa55word", Name: "Admin"})
	require.NoError(t, err)
	return s
}

func labSubmission() model.Submission {
	return model.Submission{
		Name:       "Test Student",
		RollNumber: "CS2021001",
		Stream:     "CSE",
		Phone:      "9999999999",
		Email:      "student@example.com",
		Body:       "The projector in the lab is broken.",
		LabNumber:  "Lab 101",
	}
}

func TestAccounts_SignupLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	guard := auth.NewGuard(f.codec, f.store)

	for _, wf := range model.Workflows {
		other := model.WorkflowICC
		if wf == model.WorkflowICC {
			other = model.WorkflowLab
		}

		signed := f.signup(t, wf, "Admin@Example.com ")
		assert.Equal(t, "admin@example.com", signed.Admin.Email)
		assert.Equal(t, "Admin", signed.Admin.Name)
		assert.NotEmpty(t, signed.Admin.ID)

		logged, err := f.accounts.Login(ctx, wf, "admin@example.com", "pa55word")
		require.NoError(t, err)
		assert.Equal(t, signed.Admin, logged.Admin)

		admin, err := guard.Authorize(ctx, logged.Token, wf)
		require.NoError(t, err)
		assert.Equal(t, signed.Admin.ID, admin.ID)

		_, err = guard.Authorize(ctx, logged.Token, other)
		assert.ErrorIs(t, err, model.ErrForbidden)
	}
}

func TestAccounts_DuplicateSignup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, model.WorkflowLab, "dup@example.com")

	_, err := f.accounts.Signup(ctx, model.WorkflowLab, SignupInput{Email: "DUP@example.com", Password: "x", Name: "Again"})
	assert.ErrorIs(t, err, model.ErrValidation)

	f.signup(t, model.WorkflowICC, "dup@example.com")

	n, err := f.store.CountAdmins(ctx, model.WorkflowLab)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type racingAdmins struct{ *store.Memory }

func (racingAdmins) CreateAdmin(context.Context, *model.Admin) error { return store.ErrDuplicate }

func TestAccounts_SignupRaceIsValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := NewAccounts(racingAdmins{store.NewMemory()}, auth.NewHasher(bcrypt.MinCost),
		auth.NewTokenCodec(testSecret, time.Hour), logger)

	_, err := accounts.Signup(context.Background(), model.WorkflowICC, SignupInput{Email: "a@b.co", Password: "x", Name: "A"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

var errStoreDown = errors.New("connection refused")

// flakyStore wraps the memory store and fails the operations named in down.
type flakyStore struct {
	*store.Memory
	down map[string]bool
}

func (f *flakyStore) AdminByEmail(ctx context.Context, wf model.Workflow, email string) (*model.Admin, error) {
	if f.down["AdminByEmail"] {
		return nil, errStoreDown
	}
	return f.Memory.AdminByEmail(ctx, wf, email)
}

func (f *flakyStore) ListComplaints(ctx context.Context, wf model.Workflow, limit int) ([]model.Complaint, error) {
	if f.down["ListComplaints"] {
		return nil, errStoreDown
	}
	return f.Memory.ListComplaints(ctx, wf, limit)
}

func (f *flakyStore) ComplaintByID(ctx context.Context, wf model.Workflow, id string) (*model.Complaint, error) {
	if f.down["ComplaintByID"] {
		return nil, errStoreDown
	}
	return f.Memory.ComplaintByID(ctx, wf, id)
}

func (f *flakyStore) UpdateComplaintStatus(ctx context.Context, wf model.Workflow, id, status string) error {
	if f.down["UpdateComplaintStatus"] {
		return errStoreDown
	}
	return f.Memory.UpdateComplaintStatus(ctx, wf, id, status)
}

func (f *flakyStore) CreateComplaint(ctx context.Context, c *model.Complaint) error {
	if f.down["CreateComplaint"] {
		return errStoreDown
	}
	return f.Memory.CreateComplaint(ctx, c)
}

func TestStoreFailuresAreDependencyErrors(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	setup := func(t *testing.T) (*flakyStore, *Accounts, *Complaints, *fakeNotifier, string, string) {
		t.Helper()
		s := &flakyStore{Memory: store.NewMemory(), down: map[string]bool{}}
		codec := auth.NewTokenCodec(testSecret, time.Hour)
		notifier := &fakeNotifier{}
		accounts := NewAccounts(s, auth.NewHasher(bcrypt.MinCost), codec, logger)
		complaints := NewComplaints(s, auth.NewGuard(codec, s), notifier, logger, 5<<20)

		session, err := accounts.Signup(ctx, model.WorkflowICC, SignupInput{Email: "icc@example.com", Password: "pa55word", Name: "Admin"})
		require.NoError(t, err)
		id, err := complaints.Submit(ctx, model.WorkflowICC, labSubmission())
		require.NoError(t, err)
		return s, accounts, complaints, notifier, session.Token, id
	}

	t.Run("signup and login", func(t *testing.T) {
		s, accounts, _, _, _, _ := setup(t)
		s.down["AdminByEmail"] = true

		_, err := accounts.Login(ctx, model.WorkflowICC, "icc@example.com", "pa55word")
		assert.ErrorIs(t, err, model.ErrDependency)
		_, err = accounts.Signup(ctx, model.WorkflowICC, SignupInput{Email: "new@example.com", Password: "x", Name: "N"})
		assert.ErrorIs(t, err, model.ErrDependency)
	})

	t.Run("submit", func(t *testing.T) {
		s, _, complaints, _, _, _ := setup(t)
		s.down["CreateComplaint"] = true

		_, err := complaints.Submit(ctx, model.WorkflowICC, labSubmission())
		assert.ErrorIs(t, err, model.ErrDependency)
	})

	t.Run("list", func(t *testing.T) {
		s, _, complaints, _, token, _ := setup(t)
		s.down["ListComplaints"] = true

		got, err := complaints.List(ctx, model.WorkflowICC, token)
		assert.ErrorIs(t, err, model.ErrDependency)
		assert.Nil(t, got)
	})

	t.Run("status lookup", func(t *testing.T) {
		s, _, complaints, notifier, token, id := setup(t)
		s.down["ComplaintByID"] = true

		err := complaints.UpdateStatus(ctx, model.WorkflowICC, id, token, "resolved")
		assert.ErrorIs(t, err, model.ErrDependency)
		assert.Empty(t, notifier.sent())
	})

	t.Run("status write", func(t *testing.T) {
		s, _, complaints, notifier, token, id := setup(t)
		s.down["UpdateComplaintStatus"] = true

		err := complaints.UpdateStatus(ctx, model.WorkflowICC, id, token, "resolved")
		assert.ErrorIs(t, err, model.ErrDependency)
		assert.NotErrorIs(t, err, model.ErrNotFound)
		assert.Empty(t, notifier.sent(), "no notification when the write fails")
	})
}

func TestAccounts_LoginFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.signup(t, model.WorkflowLab, "admin@example.com")

	_, err := f.accounts.Login(ctx, model.WorkflowLab, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = f.accounts.Login(ctx, model.WorkflowLab, "nobody@example.com", "pa55word")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = f.accounts.Login(ctx, model.WorkflowICC, "admin@example.com", "pa55word")
	assert.ErrorIs(t, err, model.ErrUnauthenticated, "partitions are independent")
}

func TestComplaints_Submit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	t.Run("lab requires lab number", func(t *testing.T) {
		sub := labSubmission()
		sub.LabNumber = "  "
		_, err := f.complaints.Submit(ctx, model.WorkflowLab, sub)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("invalid photo", func(t *testing.T) {
		sub := labSubmission()
		sub.Photo = "data:image/png;base64,not-an-image"
		_, err := f.complaints.Submit(ctx, model.WorkflowLab, sub)
		assert.ErrorIs(t, err, model.ErrValidation)
	})

	t.Run("lab", func(t *testing.T) {
		id, err := f.complaints.Submit(ctx, model.WorkflowLab, labSubmission())
		require.NoError(t, err)

		c, err := f.store.ComplaintByID(ctx, model.WorkflowLab, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, c.Status)
		require.NotNil(t, c.LabNumber)
		assert.Equal(t, "Lab 101", *c.LabNumber)
		assert.Nil(t, c.Photo)
		assert.Equal(t, time.UTC, c.CreatedAt.Location())
	})

	t.Run("icc drops lab fields", func(t *testing.T) {
		sub := labSubmission()
		sub.Photo = "ignored"
		id, err := f.complaints.Submit(ctx, model.WorkflowICC, sub)
		require.NoError(t, err)

		c, err := f.store.ComplaintByID(ctx, model.WorkflowICC, id)
		require.NoError(t, err)
		assert.Nil(t, c.LabNumber)
		assert.Nil(t, c.Photo)

		_, err = f.store.ComplaintByID(ctx, model.WorkflowLab, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestComplaints_ListRequiresAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.complaints.Submit(ctx, model.WorkflowICC, labSubmission())
	require.NoError(t, err)

	lab := f.signup(t, model.WorkflowLab, "lab@example.com")

	got, err := f.complaints.List(ctx, model.WorkflowICC, "")
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
	assert.Nil(t, got)

	got, err = f.complaints.List(ctx, model.WorkflowICC, lab.Token)
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.Nil(t, got)

	expired, err := auth.NewTokenCodec(testSecret, -time.Minute).Issue(lab.Admin.ID, model.WorkflowLab)
	require.NoError(t, err)
	_, err = f.complaints.List(ctx, model.WorkflowLab, expired)
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}

func TestComplaints_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown complaint", func(t *testing.T) {
		f := newFixture(t)
		admin := f.signup(t, model.WorkflowICC, "icc@example.com")

		err := f.complaints.UpdateStatus(ctx, model.WorkflowICC, "missing", admin.Token, "resolved")
		assert.ErrorIs(t, err, model.ErrNotFound)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("other workflow token", func(t *testing.T) {
		f := newFixture(t)
		id, err := f.complaints.Submit(ctx, model.WorkflowICC, labSubmission())
		require.NoError(t, err)
		lab := f.signup(t, model.WorkflowLab, "lab@example.com")

		err = f.complaints.UpdateStatus(ctx, model.WorkflowICC, id, lab.Token, "resolved")
		assert.ErrorIs(t, err, model.ErrForbidden)

		c, err := f.store.ComplaintByID(ctx, model.WorkflowICC, id)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, c.Status)
		assert.Empty(t, f.notifier.sent())
	})

	t.Run("notifier failure is not returned", func(t *testing.T) {
		f := newFixture(t)
		f.notifier.err = errors.New("queue full")
		id, err := f.complaints.Submit(ctx, model.WorkflowICC, labSubmission())
		require.NoError(t, err)
		admin := f.signup(t, model.WorkflowICC, "icc@example.com")

		require.NoError(t, f.complaints.UpdateStatus(ctx, model.WorkflowICC, id, admin.Token, "in progress"))

		c, err := f.store.ComplaintByID(ctx, model.WorkflowICC, id)
		require.NoError(t, err)
		assert.Equal(t, "in progress", c.Status)
		require.Len(t, f.notifier.sent(), 1)
		assert.Equal(t, "ICC", f.notifier.sent()[0].ComplaintType)
	})
}

func TestLabComplaintLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	f.complaints.now = func() time.Time { return base }
	older := labSubmission()
	older.Name = "Earlier Student"
	_, err := f.complaints.Submit(ctx, model.WorkflowLab, older)
	require.NoError(t, err)

	f.complaints.now = func() time.Time { return base.Add(time.Minute) }
	id, err := f.complaints.Submit(ctx, model.WorkflowLab, labSubmission())
	require.NoError(t, err)

	f.signup(t, model.WorkflowLab, "lab@example.com")
	session, err := f.accounts.Login(ctx, model.WorkflowLab, "lab@example.com", "pa55word")
	require.NoError(t, err)

	list, err := f.complaints.List(ctx, model.WorkflowLab, session.Token)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "Test Student", list[0].Name)
	assert.Equal(t, "CS2021001", list[0].RollNumber)
	assert.Equal(t, model.StatusPending, list[0].Status)

	require.NoError(t, f.complaints.UpdateStatus(ctx, model.WorkflowLab, id, session.Token, "resolved"))

	list, err = f.complaints.List(ctx, model.WorkflowLab, session.Token)
	require.NoError(t, err)
	assert.Equal(t, "resolved", list[0].Status)
	assert.Equal(t, model.StatusPending, list[1].Status)

	sent := f.notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, mailer.StatusUpdate{
		To:            "student@example.com",
		ComplaintType: "Lab",
		StudentName:   "Test Student",
		Status:        "resolved",
		ComplaintID:   id,
	}, sent[0])
}
