package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/buntdb"

	"github.com/Proton-105/stockgenie-bot/internal/domain"
	apperrors "github.com/Proton-105/stockgenie-bot/internal/errors"
)

const (
	watchKeyPrefix = "watch:"
	prefKeyPrefix  = "pref:"
	seqKey         = "meta:watch_seq"
)

// watchRecord is the JSON document stored per watchlist entry. Seq preserves insertion order.
type watchRecord struct {
	domain.WatchlistEntry
	Seq int64 `json:"seq"`
}

// BuntStore is an embedded Store backed by BuntDB, suitable for single-node deployments and tests.
type BuntStore struct {
	db  *buntdb.DB
	log *slog.Logger
}

var _ Store = (*BuntStore)(nil)

// NewBuntStore opens (or creates) the BuntDB file at path. Use ":memory:" for a volatile store.
func NewBuntStore(path string, log *slog.Logger) (*BuntStore, error) {
	if log == nil {
		log = slog.Default()
	}

	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb: %w", err)
	}

	return &BuntStore{db: db, log: log}, nil
}

func (s *BuntStore) ListTickers(ctx context.Context, userID int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []watchRecord
	err := s.db.View(func(tx *buntdb.Tx) error {
		var scanErr error
		records, scanErr = scanWatchRecords(tx, userID)
		return scanErr
	})
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}

	return tickersOf(records), nil
}

func (s *BuntStore) AddTicker(ctx context.Context, userID int64, ticker string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *buntdb.Tx) error {
		key := watchKey(userID, ticker)
		if _, err := tx.Get(key); err == nil {
			return apperrors.ErrAlreadyTracked
		} else if !errors.Is(err, buntdb.ErrNotFound) {
			return fmt.Errorf("get watchlist entry: %w", err)
		}

		seq, err := nextSeq(tx)
		if err != nil {
			return err
		}

		record := watchRecord{
			WatchlistEntry: domain.WatchlistEntry{UserID: userID, Ticker: ticker, CreatedAt: time.Now().UTC()},
			Seq:            seq,
		}
		if err := setJSON(tx, key, record); err != nil {
			return err
		}

		if _, err := tx.Get(prefKey(userID)); errors.Is(err, buntdb.ErrNotFound) {
			return setJSON(tx, prefKey(userID), domain.NewAlertPreference(userID))
		} else if err != nil {
			return fmt.Errorf("get preferences: %w", err)
		}

		return nil
	})
}

func (s *BuntStore) RemoveTicker(ctx context.Context, userID int64, ticker string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Delete(watchKey(userID, ticker)); err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return apperrors.ErrNotTracked
			}
			return fmt.Errorf("delete watchlist entry: %w", err)
		}
		return nil
	})
}

func (s *BuntStore) GetPreferences(ctx context.Context, userID int64) (*domain.AlertPreference, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pref *domain.AlertPreference
	err := s.db.View(func(tx *buntdb.Tx) error {
		var loadErr error
		pref, loadErr = loadPreference(tx, userID)
		return loadErr
	})
	if err != nil {
		return nil, err
	}

	return pref, nil
}

func (s *BuntStore) SetDailyEnabled(ctx context.Context, userID int64, enabled bool) error {
	return s.upsertPreference(ctx, userID, func(pref *domain.AlertPreference) {
		pref.DailyEnabled = enabled
	})
}

func (s *BuntStore) SetMarketEnabled(ctx context.Context, userID int64, enabled bool) error {
	return s.upsertPreference(ctx, userID, func(pref *domain.AlertPreference) {
		pref.MarketEnabled = enabled
	})
}

func (s *BuntStore) ListDailyEnabledUsers(ctx context.Context) ([]int64, error) {
	return s.listUsers(ctx, func(pref domain.AlertPreference) bool { return pref.DailyEnabled })
}

func (s *BuntStore) ListMarketEnabledUsers(ctx context.Context) ([]int64, error) {
	return s.listUsers(ctx, func(pref domain.AlertPreference) bool { return pref.MarketEnabled })
}

func (s *BuntStore) ListTickersForUsers(ctx context.Context, userIDs []int64) (map[int64][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	grouped := make(map[int64][]string, len(userIDs))
	err := s.db.View(func(tx *buntdb.Tx) error {
		for _, userID := range userIDs {
			records, err := scanWatchRecords(tx, userID)
			if err != nil {
				return err
			}
			if len(records) > 0 {
				grouped[userID] = tickersOf(records)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tickers for users: %w", err)
	}

	return grouped, nil
}

// Close flushes and closes the database.
func (s *BuntStore) Close() error {
	return s.db.Close()
}

func (s *BuntStore) upsertPreference(ctx context.Context, userID int64, mutate func(*domain.AlertPreference)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *buntdb.Tx) error {
		pref, err := loadPreference(tx, userID)
		if errors.Is(err, apperrors.ErrPreferencesNotFound) {
			pref = domain.NewAlertPreference(userID)
		} else if err != nil {
			return err
		}

		mutate(pref)
		pref.UpdatedAt = time.Now().UTC()

		return setJSON(tx, prefKey(userID), pref)
	})
}

func (s *BuntStore) listUsers(ctx context.Context, match func(domain.AlertPreference) bool) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := make([]int64, 0)
	err := s.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(prefKeyPrefix+"*", func(key, value string) bool {
			var pref domain.AlertPreference
			if err := json.Unmarshal([]byte(value), &pref); err != nil {
				s.log.Warn("skipping undecodable preference", slog.String("key", key), slog.Any("error", err))
				return true
			}
			if match(pref) {
				users = append(users, pref.UserID)
			}
			return true
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func loadPreference(tx *buntdb.Tx, userID int64) (*domain.AlertPreference, error) {
	value, err := tx.Get(prefKey(userID))
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, apperrors.ErrPreferencesNotFound
		}
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	var pref domain.AlertPreference
	if err := json.Unmarshal([]byte(value), &pref); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}

	return &pref, nil
}

func scanWatchRecords(tx *buntdb.Tx, userID int64) ([]watchRecord, error) {
	var (
		records []watchRecord
		decErr  error
	)

	err := tx.AscendKeys(watchUserPattern(userID), func(_, value string) bool {
		var record watchRecord
		if decErr = json.Unmarshal([]byte(value), &record); decErr != nil {
			return false
		}
		records = append(records, record)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decErr != nil {
		return nil, fmt.Errorf("decode watchlist entry: %w", decErr)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Seq < records[j].Seq })
	return records, nil
}

func nextSeq(tx *buntdb.Tx) (int64, error) {
	var current int64

	value, err := tx.Get(seqKey)
	switch {
	case err == nil:
		current, err = strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse sequence: %w", err)
		}
	case !errors.Is(err, buntdb.ErrNotFound):
		return 0, fmt.Errorf("get sequence: %w", err)
	}

	current++
	if _, _, err := tx.Set(seqKey, strconv.FormatInt(current, 10), nil); err != nil {
		return 0, fmt.Errorf("set sequence: %w", err)
	}

	return current, nil
}

func setJSON(tx *buntdb.Tx, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if _, _, err := tx.Set(key, string(payload), nil); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	return nil
}

func tickersOf(records []watchRecord) []string {
	tickers := make([]string, 0, len(records))
	for _, record := range records {
		tickers = append(tickers, record.Ticker)
	}
	return tickers
}

func watchKey(userID int64, ticker string) string {
	return watchKeyPrefix + strconv.FormatInt(userID, 10) + ":" + ticker
}

func watchUserPattern(userID int64) string {
	return watchKeyPrefix + strconv.FormatInt(userID, 10) + ":*"
}

func prefKey(userID int64) string {
	return prefKeyPrefix + strconv.FormatInt(userID, 10)
}
