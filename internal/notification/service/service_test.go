package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/smallbiznis/kograph/internal/changefeed"
	"github.com/smallbiznis/kograph/internal/clock"
	notificationdomain "github.com/smallbiznis/kograph/internal/notification/domain"
	"github.com/smallbiznis/kograph/internal/notification/repository"
	"github.com/smallbiznis/kograph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateAndList(t *testing.T) {
	db := testutil.OpenDB(t)
	hub := changefeed.NewHub()
	svc := NewService(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    testutil.NewNode(t),
		Repo:     repository.Provide(),
		Clock:    clock.NewFakeClock(time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC)),
		Notifier: hub,
	})
	ctx := context.Background()

	sub, _, err := hub.Subscribe(changefeed.TableNotifications)
	require.NoError(t, err)
	defer sub.Close()

	first, err := svc.Create(ctx, "user-1", "Peringatan Admin", "first")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "user-1", "Peringatan Admin", "second")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user-2", "Peringatan Admin", "other")
	require.NoError(t, err)

	select {
	case got := <-sub.Events():
		assert.Equal(t, strconv.FormatInt(first.ID, 10), got.ID)
		assert.Equal(t, "user-1", got.UserID)
	case <-time.After(time.Second):
		t.Fatalf("expected a notifications change")
	}

	rows, err := svc.ListForUser(ctx, "user-1", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.Equal(t, "first", rows[1].Message)
}

func TestCreateValidates(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Repo:  repository.Provide(),
		Clock: clock.SystemClock{},
	})

	_, err := svc.Create(context.Background(), "", "t", "m")
	assert.ErrorIs(t, err, notificationdomain.ErrInvalidUser)

	_, err = svc.Create(context.Background(), "user-1", "t", "   ")
	assert.ErrorIs(t, err, notificationdomain.ErrEmptyMessage)
}
