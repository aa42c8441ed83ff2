package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/Proton-105/stockgenie-bot/internal/domain"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
)

// PostgresStore is the SQL-backed Store implementation.
type PostgresStore struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new SQL-backed store.
func NewPostgresStore(db *sql.DB, log *slog.Logger) *PostgresStore {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresStore{
		db:  db,
		log: log,
	}
}

func (s *PostgresStore) ListTickers(ctx context.Context, userID int64) ([]string, error) {
	const query = `
		SELECT ticker
		FROM watchlist
		WHERE user_id = $1
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("select tickers: %w", err)
	}
	defer rows.Close()

	tickers := make([]string, 0)
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickers: %w", err)
	}

	return tickers, nil
}

func (s *PostgresStore) AddTicker(ctx context.Context, userID int64, ticker string) error {
	const insertEntry = `
		INSERT INTO watchlist (user_id, ticker)
		VALUES ($1, $2)
		ON CONFLICT (user_id, ticker) DO NOTHING
	`
	const ensurePreferences = `
		INSERT INTO preferences (user_id, daily_enabled, market_enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add ticker: %w", err)
	}

	result, err := tx.ExecContext(ctx, insertEntry, userID, ticker)
	if err != nil {
		s.rollback(tx)
		return fmt.Errorf("insert watchlist entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		s.rollback(tx)
		return fmt.Errorf("insert watchlist entry: %w", err)
	}
	if affected == 0 {
		s.rollback(tx)
		return apperrors.ErrAlreadyTracked
	}

	if _, err := tx.ExecContext(ctx, ensurePreferences, userID, domain.DefaultDailyEnabled, domain.DefaultMarketEnabled); err != nil {
		s.rollback(tx)
		return fmt.Errorf("ensure preferences: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add ticker: %w", err)
	}

	return nil
}

func (s *PostgresStore) RemoveTicker(ctx context.Context, userID int64, ticker string) error {
	const query = `DELETE FROM watchlist WHERE user_id = $1 AND ticker = $2`

	result, err := s.db.ExecContext(ctx, query, userID, ticker)
	if err != nil {
		return fmt.Errorf("delete watchlist entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete watchlist entry: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrNotTracked
	}

	return nil
}

func (s *PostgresStore) GetPreferences(ctx context.Context, userID int64) (*domain.AlertPreference, error) {
	const query = `
		SELECT user_id, daily_enabled, market_enabled, updated_at
		FROM preferences
		WHERE user_id = $1
	`

	var pref domain.AlertPreference
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&pref.UserID,
		&pref.DailyEnabled,
		&pref.MarketEnabled,
		&pref.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrPreferencesNotFound
		}
		return nil, fmt.Errorf("select preferences: %w", err)
	}

	return &pref, nil
}

func (s *PostgresStore) SetDailyEnabled(ctx context.Context, userID int64, enabled bool) error {
	const query = `
		INSERT INTO preferences (user_id, daily_enabled, market_enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET daily_enabled = EXCLUDED.daily_enabled, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, userID, enabled, domain.DefaultMarketEnabled); err != nil {
		return fmt.Errorf("upsert daily flag: %w", err)
	}

	return nil
}

func (s *PostgresStore) SetMarketEnabled(ctx context.Context, userID int64, enabled bool) error {
	const query = `
		INSERT INTO preferences (user_id, daily_enabled, market_enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET market_enabled = EXCLUDED.market_enabled, updated_at = NOW()
	`

	if _, err := s.db.ExecContext(ctx, query, userID, domain.DefaultDailyEnabled, enabled); err != nil {
		return fmt.Errorf("upsert market flag: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListDailyEnabledUsers(ctx context.Context) ([]int64, error) {
	return s.listUsers(ctx, `SELECT user_id FROM preferences WHERE daily_enabled ORDER BY user_id`)
}

func (s *PostgresStore) ListMarketEnabledUsers(ctx context.Context) ([]int64, error) {
	return s.listUsers(ctx, `SELECT user_id FROM preferences WHERE market_enabled ORDER BY user_id`)
}

func (s *PostgresStore) ListTickersForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	const query = `
		SELECT user_id, ticker
		FROM watchlist
		WHERE user_id = ANY($1)
		ORDER BY user_id, id
	`

	grouped := make(map[int64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return grouped, nil
	}

	rows, err := s.db.QueryContext(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("select tickers for users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID int64
			ticker string
		)
		if err := rows.Scan(&userID, &ticker); err != nil {
			return nil, fmt.Errorf("scan user ticker: %w", err)
		}
		grouped[userID] = append(grouped[userID], ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user tickers: %w", err)
	}

	return grouped, nil
}

// Close closes the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) listUsers(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	users := make([]int64, 0)
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

func (s *PostgresStore) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Error("rollback failed", slog.Any("error", err))
	}
}
