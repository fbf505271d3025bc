package service

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	apikeydomain "github.com/smallbiznis/kograph/internal/apikey/domain"
	"github.com/smallbiznis/kograph/internal/apikey/repository"
	auditrepository "github.com/smallbiznis/kograph/internal/audit/repository"
	auditservice "github.com/smallbiznis/kograph/internal/audit/service"
	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var keyPattern = regexp.MustCompile(`^kg_[0-9a-f]{8}_[A-Za-z0-9_-]{32}$`)

func newTestService(t *testing.T) (apikeydomain.Service, *gorm.DB, *changefeed.Hub) {
	t.Helper()
	db := testutil.OpenDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	audit := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Repo:  auditrepository.Provide(),
		Clock: clk,
	})
	hub := changefeed.NewHub()
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Repo:     repository.Provide(),
		AuditSvc: audit,
		Clock:    clk,
		Notifier: hub,
	})
	return svc, db, hub
}

func TestCreateReturnsPlaintextOnce(t *testing.T) {
	svc, db, _ := newTestService(t)

	created, err := svc.Create(context.Background(), "user-1", "  ")
	require.NoError(t, err)
	assert.Regexp(t, keyPattern, created.APIKey)
	assert.True(t, strings.HasPrefix(created.APIKey, "kg_"+created.KeyPrefix+"_"))

	var stored string
	require.NoError(t, db.Raw(`SELECT key_hash FROM api_keys WHERE id = ?`, created.ID).Scan(&stored).Error)
	assert.Equal(t, apikeydomain.HashAPIKey(created.APIKey), stored)
	assert.NotContains(t, stored, created.APIKey)

	keys, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "API Key", keys[0].Name)
	assert.Equal(t, int64(1), testutil.Count(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'api_key_created'`))
}

func TestCreateTruncatesName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "user-1", strings.Repeat("n", 120))
	require.NoError(t, err)
	keys, err := svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, keys[0].Name, 80)
}

func TestValidate(t *testing.T) {
	svc, _, _ := newTestService(t)
	created, err := svc.Create(context.Background(), "user-1", "ci")
	require.NoError(t, err)

	key, err := svc.Validate(context.Background(), created.APIKey)
	require.NoError(t, err)
	assert.Equal(t, "user-1", key.UserID)

	_, err = svc.Validate(context.Background(), "")
	assert.ErrorIs(t, err, apikeydomain.ErrMissingAPIKey)
	_, err = svc.Validate(context.Background(), created.APIKey+"x")
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidAPIKey)

	require.NoError(t, svc.Revoke(context.Background(), created.ID, "user-1"))
	_, err = svc.Validate(context.Background(), created.APIKey)
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidAPIKey)
}

func TestRevokeIsFirstWins(t *testing.T) {
	svc, db, hub := newTestService(t)
	created, err := svc.Create(context.Background(), "user-1", "ci")
	require.NoError(t, err)

	sub, _, err := hub.Subscribe(changefeed.TableAPIKeys)
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, svc.Revoke(context.Background(), created.ID, "user-1"))
	require.NoError(t, svc.Revoke(context.Background(), created.ID, "user-1"))

	assert.Equal(t, int64(1), testutil.Count(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'api_key_revoked'`))
	assert.Equal(t, int64(1), testutil.Count(t, db, `SELECT COUNT(*) FROM api_keys WHERE revoked_at IS NOT NULL`))

	select {
	case change := <-sub.Events():
		assert.Equal(t, changefeed.OpUpdate, change.Op)
		assert.Equal(t, created.ID, change.ID)
	default:
		t.Fatalf("expected a revoke change")
	}
	select {
	case change := <-sub.Events():
		t.Fatalf("unexpected second change %+v", change)
	default:
	}
}

func TestRevokeIgnoresForeignKeys(t *testing.T) {
	svc, db, _ := newTestService(t)
	created, err := svc.Create(context.Background(), "owner", "ci")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), created.ID, "intruder"))
	assert.Equal(t, int64(0), testutil.Count(t, db, `SELECT COUNT(*) FROM api_keys WHERE revoked_at IS NOT NULL`))
	assert.Equal(t, int64(0), testutil.Count(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'api_key_revoked'`))

	assert.ErrorIs(t, svc.Revoke(context.Background(), "", "owner"), apikeydomain.ErrInvalidKeyID)
}

func TestRevokeMalformedIDIsNoop(t *testing.T) {
	svc, db, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "owner", "ci")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(context.Background(), "not-a-uuid", "owner"))
	assert.Equal(t, int64(0), testutil.Count(t, db, `SELECT COUNT(*) FROM api_keys WHERE revoked_at IS NOT NULL`))
	assert.Equal(t, int64(0), testutil.Count(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'api_key_revoked'`))
}
