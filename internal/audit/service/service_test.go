package service

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/kograph/internal/audit/domain"
	"github.com/smallbiznis/kograph/internal/audit/repository"
	"github.com/smallbiznis/kograph/internal/auditcontext"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	"github.com/smallbiznis/kograph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, policy config.Policy) (auditdomain.Service, *gorm.DB) {
	t.Helper()
	db := testutil.OpenDB(t)
	svc := NewService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  testutil.NewNode(t),
		Repo:   repository.Provide(),
		Clock:  clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Policy: config.NewStaticPolicyHolder(policy),
	})
	return svc, db
}

func TestRecordStoresContextAndDetails(t *testing.T) {
	svc, db := newTestService(t, config.DefaultPolicy())

	ctx := auditcontext.WithIPAddress(context.Background(), "10.0.0.1")
	ctx = auditcontext.WithUserAgent(ctx, "curl/8.0")
	err := svc.Record(ctx, auditdomain.Event{
		Action:        auditdomain.ActionWithdrawalRequested,
		ActorUserID:   "user-1",
		SubjectUserID: "user-1",
		Details:       auditdomain.WithdrawalDetails{WithdrawalID: "w-1", Amount: 5000},
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Rows, 1)

	row := resp.Rows[0]
	require.NotNil(t, row.IP)
	assert.Equal(t, "10.0.0.1", *row.IP)
	require.NotNil(t, row.UserAgent)
	assert.Equal(t, "curl/8.0", *row.UserAgent)

	decoded, err := auditdomain.DecodeDetails(row.Action, row.Details)
	require.NoError(t, err)
	details, ok := decoded.(*auditdomain.WithdrawalDetails)
	require.True(t, ok)
	assert.Equal(t, int64(5000), details.Amount)
	assert.Equal(t, int64(1), testutil.Count(t, db, `SELECT COUNT(*) FROM audit_logs`))
}

func TestRecordRejectsMismatchedDetails(t *testing.T) {
	svc, _ := newTestService(t, config.DefaultPolicy())

	err := svc.Record(context.Background(), auditdomain.Event{
		Action:  auditdomain.ActionAPIKeyRevoked,
		Details: auditdomain.WarningDetails{Message: "hi"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidDetails)

	err = svc.Record(context.Background(), auditdomain.Event{
		Details: auditdomain.WarningDetails{Message: "hi"},
	})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestRecordTxRollsBackWithCaller(t *testing.T) {
	svc, db := newTestService(t, config.DefaultPolicy())

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.RecordTx(context.Background(), tx, auditdomain.Event{
			Action:  auditdomain.ActionAPIKeyRevoked,
			Details: auditdomain.APIKeyRevokedDetails{APIKeyID: "k-1"},
		}))
		return assert.AnError
	})

	assert.Equal(t, int64(0), testutil.Count(t, db, `SELECT COUNT(*) FROM audit_logs`))
}

func TestListPagesNewestFirstAndFilters(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.Lists.AdminAudit = 2
	svc, _ := newTestService(t, policy)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(context.Background(), auditdomain.Event{
			Action:  auditdomain.ActionUserWarned,
			Details: auditdomain.WarningDetails{Message: "slow down"},
		}))
	}
	require.NoError(t, svc.Record(context.Background(), auditdomain.Event{
		Action:  auditdomain.ActionAPIKeyRevoked,
		Details: auditdomain.APIKeyRevokedDetails{APIKeyID: "k-1"},
	}))

	first, err := svc.List(context.Background(), auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)
	assert.True(t, first.PageInfo.HasMore)
	assert.Equal(t, auditdomain.ActionAPIKeyRevoked, first.Rows[0].Action)
	assert.Greater(t, first.Rows[0].ID, first.Rows[1].ID)

	second, err := svc.List(context.Background(), auditdomain.ListRequest{PageToken: first.PageInfo.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Rows, 2)
	assert.False(t, second.PageInfo.HasMore)
	assert.Less(t, second.Rows[0].ID, first.Rows[1].ID)

	warned, err := svc.List(context.Background(), auditdomain.ListRequest{Action: string(auditdomain.ActionUserWarned), PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, warned.Rows, 3)

	_, err = svc.List(context.Background(), auditdomain.ListRequest{PageToken: "%%%"})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}
