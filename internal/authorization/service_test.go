package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/identity/repository"
	identityservice "github.com/smallbiznis/kograph/internal/identity/service"
	"github.com/smallbiznis/kograph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	enforcer, err := NewEnforcerWithAdapter(nil)
	require.NoError(t, err)

	identity := identityservice.NewService(identityservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	})
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer, Identity: identity}), db
}

func TestAuthorizeAdminCapabilities(t *testing.T) {
	svc, db := newTestService(t)
	testutil.SeedProfile(t, db, "admin-1", "admin", false)

	for _, action := range []string{ActionWithdrawalView, ActionWithdrawalUpdate} {
		assert.NoError(t, svc.Authorize(context.Background(), "admin-1", ObjectWithdrawal, action))
	}
	assert.NoError(t, svc.Authorize(context.Background(), "admin-1", ObjectUser, ActionUserModerate))
	assert.NoError(t, svc.Authorize(context.Background(), "admin-1", ObjectAuditLog, ActionAuditLogView))
	assert.ErrorIs(t, svc.Authorize(context.Background(), "admin-1", ObjectAuditLog, "audit_log.delete"), ErrForbidden)
}

func TestAuthorizeDeniesUsers(t *testing.T) {
	svc, db := newTestService(t)
	testutil.SeedProfile(t, db, "user-1", "user", false)

	assert.ErrorIs(t, svc.Authorize(context.Background(), "user-1", ObjectWithdrawal, ActionWithdrawalUpdate), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "nobody", ObjectUser, ActionUserView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "", ObjectUser, ActionUserView), ErrInvalidActor)
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	svc, db := newTestService(t)
	testutil.SeedProfile(t, db, "user-1", "admin", false)
	require.NoError(t, svc.Authorize(context.Background(), "user-1", ObjectUser, ActionUserView))

	require.NoError(t, db.Exec(`UPDATE profiles SET role = 'user' WHERE id = ?`, "user-1").Error)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "user-1", ObjectUser, ActionUserView), ErrForbidden)
}
