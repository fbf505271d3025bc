package service

import (
	"context"
	"testing"
	"time"

	auditrepository "github.com/smallbiznis/kograph/internal/audit/repository"
	auditservice "github.com/smallbiznis/kograph/internal/audit/service"
	"github.com/smallbiznis/kograph/internal/clock"
	settingsdomain "github.com/smallbiznis/kograph/internal/settings/domain"
	"github.com/smallbiznis/kograph/internal/settings/repository"
	"github.com/smallbiznis/kograph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (settingsdomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC))
	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: zap.NewNop(), GenID: testutil.NewNode(t), Repo: auditrepository.Provide(), Clock: clk,
	})
	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		Repo:     repository.Provide(),
		AuditSvc: audit,
		Clock:    clk,
	})
	return svc, db
}

func TestDefaultAmountFallsBackWhenUnset(t *testing.T) {
	svc, _ := newTestService(t)

	amount, err := svc.GetDefaultAmount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), amount)
}

func TestSetDefaultAmountUpserts(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetDefaultAmount(ctx, "user-1", 25000))
	require.NoError(t, svc.SetDefaultAmount(ctx, "user-1", 15000))

	amount, err := svc.GetDefaultAmount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(15000), amount)

	assert.Equal(t, int64(1), testutil.Count(t, db, `SELECT COUNT(*) FROM user_settings`))
	assert.Equal(t, int64(2), testutil.Count(t, db,
		`SELECT COUNT(*) FROM audit_logs WHERE action = 'settings_default_amount_updated'`))
}

func TestSetDefaultAmountRejectsBelowMinimum(t *testing.T) {
	svc, db := newTestService(t)

	err := svc.SetDefaultAmount(context.Background(), "user-1", 999)
	assert.ErrorIs(t, err, settingsdomain.ErrInvalidAmount)
	assert.Equal(t, int64(0), testutil.Count(t, db, `SELECT COUNT(*) FROM user_settings`))

	err = svc.SetDefaultAmount(context.Background(), " ", 5000)
	assert.ErrorIs(t, err, settingsdomain.ErrInvalidUser)
}
