package overview

import (
	"context"
	"testing"
	"time"

	apikeyrepository "github.com/smallbiznis/kograph/internal/apikey/repository"
	apikeyservice "github.com/smallbiznis/kograph/internal/apikey/service"
	auditrepository "github.com/smallbiznis/kograph/internal/audit/repository"
	auditservice "github.com/smallbiznis/kograph/internal/audit/service"
	checkoutdomain "github.com/smallbiznis/kograph/internal/checkout/domain"
	checkoutrepository "github.com/smallbiznis/kograph/internal/checkout/repository"
	checkoutservice "github.com/smallbiznis/kograph/internal/checkout/service"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	identityrepository "github.com/smallbiznis/kograph/internal/identity/repository"
	identityservice "github.com/smallbiznis/kograph/internal/identity/service"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/kograph/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/kograph/internal/ledger/service"
	settingsrepository "github.com/smallbiznis/kograph/internal/settings/repository"
	settingsservice "github.com/smallbiznis/kograph/internal/settings/service"
	"github.com/smallbiznis/kograph/internal/testutil"
	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
	withdrawalrepository "github.com/smallbiznis/kograph/internal/withdrawal/repository"
	withdrawalservice "github.com/smallbiznis/kograph/internal/withdrawal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOverviewCollectsUserState(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := config.Config{Saweria: config.SaweriaConfig{DonationURL: "https://saweria.co/kograph"}}

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: clk,
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Repo: ledgerrepository.Provide(), Clock: clk,
	})
	identity := identityservice.NewService(identityservice.Params{
		DB: db, Log: log, Repo: identityrepository.Provide(), Clock: clk,
	})
	settings := settingsservice.NewService(settingsservice.Params{
		DB: db, Log: log, Repo: settingsrepository.Provide(), AuditSvc: audit, Clock: clk,
	})
	apiKeys := apikeyservice.New(apikeyservice.Params{
		DB: db, Log: log, Repo: apikeyrepository.Provide(), AuditSvc: audit, Clock: clk,
	})
	checkouts := checkoutservice.NewService(checkoutservice.Params{
		DB: db, Log: log, Cfg: cfg, Repo: checkoutrepository.Provide(), AuditSvc: audit, Clock: clk,
	})
	withdrawals := withdrawalservice.NewService(withdrawalservice.Params{
		DB: db, Log: log, Repo: withdrawalrepository.Provide(), LedgerSvc: ledger,
		AuditSvc: audit, IdentitySvc: identity, Clock: clk,
	})
	svc := NewService(Params{
		LedgerSvc:     ledger,
		SettingsSvc:   settings,
		APIKeySvc:     apiKeys,
		CheckoutSvc:   checkouts,
		WithdrawalSvc: withdrawals,
	})
	ctx := context.Background()

	empty, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Balance)
	assert.Equal(t, int64(10000), empty.DefaultAmount)
	assert.NotNil(t, empty.APIKeys)
	assert.Empty(t, empty.Checkouts)

	_, err = ledger.AppendEntry(ctx, ledgerdomain.AppendRequest{
		UserID: "user-1", EntryType: ledgerdomain.EntryTypeTopup, Amount: 9942,
	})
	require.NoError(t, err)
	require.NoError(t, settings.SetDefaultAmount(ctx, "user-1", 20000))
	_, err = apiKeys.Create(ctx, "user-1", "shop")
	require.NoError(t, err)
	_, err = checkouts.Create(ctx, checkoutdomain.CreateRequest{
		UserID: "user-1", Amount: 10000, Kind: checkoutdomain.KindWeb,
	})
	require.NoError(t, err)
	_, err = withdrawals.Request(ctx, withdrawaldomain.RequestInput{UserID: "user-1", Amount: 5000})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(4942), got.Balance)
	assert.Equal(t, int64(20000), got.DefaultAmount)
	require.Len(t, got.APIKeys, 1)
	assert.Equal(t, "shop", got.APIKeys[0].Name)
	assert.Len(t, got.Checkouts, 1)
	require.Len(t, got.Withdrawals, 1)
	assert.Equal(t, int64(5000), got.Withdrawals[0].Amount)
}

func TestOverviewRequiresUser(t *testing.T) {
	svc := NewService(Params{})
	_, err := svc.Get(context.Background(), " ")
	assert.ErrorIs(t, err, ledgerdomain.ErrInvalidUser)
}
