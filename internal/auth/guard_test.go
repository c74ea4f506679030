package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/complaintdesk/internal/model"
	"github.com/complaintdesk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newGuardFixture(t *testing.T) (*Guard, *TokenCodec, *store.Memory) {
	t.Helper()
	codec := NewTokenCodec(testSecret, time.Hour)
	admins := store.NewMemory()
	for _, wf := range model.Workflows {
		require.NoError(t, admins.CreateAdmin(context.Background(), &model.Admin{
			ID:           string(wf) + "-admin",
			Workflow:     wf,
			Email:        "admin@" + string(wf) + ".test",
			Name:         "Admin",
			PasswordHash: "hash",
			CreatedAt:    time.Now().UTC(),
		}))
	}
	return NewGuard(codec, admins), codec, admins
}

func TestGuard_Authorize(t *testing.T) {
	ctx := context.Background()
	guard, codec, _ := newGuardFixture(t)

	labToken, err := codec.Issue("lab-admin", model.WorkflowLab)
	require.NoError(t, err)
	iccToken, err := codec.Issue("icc-admin", model.WorkflowICC)
	require.NoError(t, err)
	ghostToken, err := codec.Issue("ghost", model.WorkflowLab)
	require.NoError(t, err)

	expiredCodec := NewTokenCodec(testSecret, -time.Minute)
	expired, err := expiredCodec.Issue("lab-admin", model.WorkflowLab)
	require.NoError(t, err)

	t.Run("matching workflow", func(t *testing.T) {
		admin, err := guard.Authorize(ctx, labToken, model.WorkflowLab)
		require.NoError(t, err)
		assert.Equal(t, "lab-admin", admin.ID)
		assert.Empty(t, admin.PasswordHash)

		admin, err = guard.Authorize(ctx, iccToken, model.WorkflowICC)
		require.NoError(t, err)
		assert.Equal(t, "icc-admin", admin.ID)
	})

	t.Run("other workflow is forbidden", func(t *testing.T) {
		_, err := guard.Authorize(ctx, labToken, model.WorkflowICC)
		assert.ErrorIs(t, err, model.ErrForbidden)

		_, err = guard.Authorize(ctx, iccToken, model.WorkflowLab)
		assert.ErrorIs(t, err, model.ErrForbidden)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		for name, token := range map[string]string{
			"missing": "",
			"garbage": "abc.def.ghi",
			"expired": expired,
			"unknown": ghostToken,
		} {
			_, err := guard.Authorize(ctx, token, model.WorkflowLab)
			assert.ErrorIs(t, err, model.ErrUnauthenticated, name)
		}
	})
}

type unreachableAdmins struct{}

func (unreachableAdmins) AdminByID(context.Context, model.Workflow, string) (*model.Admin, error) {
	return nil, errors.New("connection refused")
}

func TestGuard_StoreFailureIsDependency(t *testing.T) {
	codec := NewTokenCodec(testSecret, time.Hour)
	token, err := codec.Issue("lab-admin", model.WorkflowLab)
	require.NoError(t, err)

	_, err = NewGuard(codec, unreachableAdmins{}).Authorize(context.Background(), token, model.WorkflowLab)
	assert.ErrorIs(t, err, model.ErrDependency)
	assert.NotErrorIs(t, err, model.ErrUnauthenticated)
}

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, h.Verify(hash, "correct horse"))
	assert.False(t, h.Verify(hash, "wrong horse"))
	assert.False(t, h.Verify("not-a-hash", "correct horse"))

	again, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")

	assert.Equal(t, defaultBcryptCost, NewHasher(0).cost)
	assert.Equal(t, defaultBcryptCost, NewHasher(bcrypt.MaxCost+1).cost)
}

type countingStore struct {
	*store.Memory
	created int
}

func (c *countingStore) CreateAdmin(ctx context.Context, a *model.Admin) error {
	c.created++
	return c.Memory.CreateAdmin(ctx, a)
}

func TestSeedFirstAdmin(t *testing.T) {
	ctx := context.Background()
	admins := &countingStore{Memory: store.NewMemory()}
	h := NewHasher(bcrypt.MinCost)
	seed := SeedAdmin{Workflow: model.WorkflowICC, Email: " Root@Example.com ", Password: "secret"}

	SeedFirstAdmin(ctx, admins, h, seed)
	SeedFirstAdmin(ctx, admins, h, seed)
	assert.Equal(t, 1, admins.created)

	admin, err := admins.AdminByEmail(ctx, model.WorkflowICC, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Administrator", admin.Name)
	assert.True(t, h.Verify(admin.PasswordHash, "secret"))

	n, err := admins.CountAdmins(ctx, model.WorkflowLab)
	require.NoError(t, err)
	assert.Zero(t, n)

	SeedFirstAdmin(ctx, admins, h, SeedAdmin{Workflow: model.WorkflowLab})
	assert.Equal(t, 1, admins.created)
}
