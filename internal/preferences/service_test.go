package preferences

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/stockgenie-bot/internal/domain"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
	"github.com/Proton-105/stockgenie-bot/internal/repository"
)

var errStoreFailure = errors.New("store error")

type mockStore struct {
	mock.Mock
}

var _ repository.Store = (*mockStore)(nil)

func (m *mockStore) ListTickers(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	tickers, _ := args.Get(0).([]string)
	return tickers, args.Error(1)
}

func (m *mockStore) AddTicker(ctx context.Context, userID int64, ticker string) error {
	return m.Called(ctx, userID, ticker).Error(0)
}

func (m *mockStore) RemoveTicker(ctx context.Context, userID int64, ticker string) error {
	return m.Called(ctx, userID, ticker).Error(0)
}

func (m *mockStore) GetPreferences(ctx context.Context, userID int64) (*domain.AlertPreference, error) {
	args := m.Called(ctx, userID)
	pref, _ := args.Get(0).(*domain.AlertPreference)
	return pref, args.Error(1)
}

func (m *mockStore) SetDailyEnabled(ctx context.Context, userID int64, enabled bool) error {
	return m.Called(ctx, userID, enabled).Error(0)
}

func (m *mockStore) SetMarketEnabled(ctx context.Context, userID int64, enabled bool) error {
	return m.Called(ctx, userID, enabled).Error(0)
}

func (m *mockStore) ListDailyEnabledUsers(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]int64)
	return users, args.Error(1)
}

func (m *mockStore) ListMarketEnabledUsers(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]int64)
	return users, args.Error(1)
}

func (m *mockStore) ListTickersForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	args := m.Called(ctx, userIDs)
	grouped, _ := args.Get(0).(map[int64][]string)
	return grouped, args.Error(1)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

func TestService_Track(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name      string
		storeErr  error
		assertErr func(t *testing.T, err error)
	}{
		{
			name:      "success",
			assertErr: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name:     "sentinel passes through",
			storeErr: apperrors.ErrAlreadyTracked,
			assertErr: func(t *testing.T, err error) {
				assert.Same(t, apperrors.ErrAlreadyTracked, err)
			},
		},
		{
			name:     "infrastructure failure is wrapped",
			storeErr: errStoreFailure,
			assertErr: func(t *testing.T, err error) {
				var appErr *apperrors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, "E200", appErr.Code)
				assert.ErrorIs(t, err, errStoreFailure)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := &mockStore{}
			store.On("AddTicker", mock.Anything, int64(1), "AAPL").Return(tc.storeErr).Once()

			svc := NewService(store, time.Second, testLogger())
			tc.assertErr(t, svc.Track(ctx, 1, "AAPL"))
			store.AssertExpectations(t)
		})
	}
}

func TestService_AppliesDeadline(t *testing.T) {
	store := &mockStore{}
	store.On("ListTickers", mock.MatchedBy(func(ctx context.Context) bool {
		deadline, ok := ctx.Deadline()
		return ok && time.Until(deadline) <= 250*time.Millisecond
	}), int64(3)).Return([]string{"MSFT"}, nil).Once()

	svc := NewService(store, 250*time.Millisecond, testLogger())
	tickers, err := svc.Watchlist(context.Background(), 3)

	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, tickers)
	store.AssertExpectations(t)
}

func TestService_TickersForUsers(t *testing.T) {
	store := &mockStore{}
	store.On("ListTickersForUsers", mock.Anything, []int64{1, 2, 3}).
		Return(map[int64][]string{1: {"AAPL"}, 3: {}}, nil).Once()

	svc := NewService(store, time.Second, testLogger())
	grouped, err := svc.TickersForUsers(context.Background(), []int64{1, 2, 1, 3})

	require.NoError(t, err)
	assert.Equal(t, map[int64][]string{1: {"AAPL"}}, grouped)
	store.AssertExpectations(t)
}

func TestService_TickersForUsersEmpty(t *testing.T) {
	store := &mockStore{}

	svc := NewService(store, time.Second, testLogger())
	grouped, err := svc.TickersForUsers(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, grouped)
	store.AssertNotCalled(t, "ListTickersForUsers", mock.Anything, mock.Anything)
}

func TestService_WithBuntStore(t *testing.T) {
	ctx := context.Background()
	store, err := repository.NewBuntStore(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := NewService(store, 0, testLogger())

	require.NoError(t, svc.Track(ctx, 10, "AAPL"))
	assert.ErrorIs(t, svc.Track(ctx, 10, "AAPL"), apperrors.ErrAlreadyTracked)
	assert.ErrorIs(t, svc.Untrack(ctx, 10, "TSLA"), apperrors.ErrNotTracked)

	require.NoError(t, svc.SetMarket(ctx, 10, true))
	users, err := svc.MarketEnabledUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, users)

	daily, err := svc.DailyEnabledUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, daily)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
