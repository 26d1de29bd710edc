// Package cache persists the most recent scan per account so clean can run
// without re-scanning the mailbox.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite"

	"go.withmatt.com/mailsweep/internal/gmail"
	"go.withmatt.com/mailsweep/internal/scan"
)

const cacheFileName = "scans.sqlite"

// ErrNoScan is returned when no cached scan exists for an account.
var ErrNoScan = errors.New("no cached scan for account")

// Scan is a persisted scan result.
type Scan struct {
	Account       string
	ScannedAt     time.Time
	TotalMessages int
	FailedFetches int
	Senders       []scan.ScoredSender
}

// Store is a sqlite-backed scan cache.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// DefaultPath returns the cache database path under the XDG cache dir.
func DefaultPath() (string, error) {
	return xdg.CacheFile(filepath.Join("mailsweep", cacheFileName))
}

// Open opens (creating if needed) the scan cache at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS scans (
			account TEXT PRIMARY KEY,
			scanned_at INTEGER NOT NULL,
			total_messages INTEGER NOT NULL,
			failed_fetches INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS senders (
			account TEXT NOT NULL,
			position INTEGER NOT NULL,
			address TEXT NOT NULL,
			display_name TEXT NOT NULL,
			message_count INTEGER NOT NULL,
			message_ids TEXT NOT NULL,
			has_unsubscribe INTEGER NOT NULL,
			one_click INTEGER NOT NULL,
			matched_keyword INTEGER NOT NULL,
			target_kind INTEGER,
			target_value TEXT,
			latest_subject TEXT NOT NULL,
			score REAL NOT NULL,
			eligible INTEGER NOT NULL,
			PRIMARY KEY (account, position)
		)
	`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveScan replaces the cached scan for an account wholesale.
func (s *Store) SaveScan(account string, result *scan.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM senders WHERE account = ?`, account); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO scans (account, scanned_at, total_messages, failed_fetches)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET
			scanned_at = excluded.scanned_at,
			total_messages = excluded.total_messages,
			failed_fetches = excluded.failed_fetches
	`, account, time.Now().UTC().Unix(), result.TotalMessages, result.FailedFetches); err != nil {
		_ = tx.Rollback()
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO senders (
			account, position, address, display_name, message_count,
			message_ids, has_unsubscribe, one_click, matched_keyword,
			target_kind, target_value, latest_subject, score, eligible
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for position, sender := range result.Senders {
		idsJSON, err := json.Marshal(sender.MessageIDs)
		if err != nil {
			_ = tx.Rollback()
			return err
		}

		var targetKind sql.NullInt64
		var targetValue sql.NullString
		if sender.Target != nil {
			targetKind = sql.NullInt64{Int64: int64(sender.Target.Kind), Valid: true}
			targetValue = sql.NullString{String: sender.Target.Value, Valid: true}
		}

		if _, err := stmt.ExecContext(ctx,
			account, position, sender.Address, sender.DisplayName,
			sender.MessageCount, string(idsJSON),
			boolToInt(sender.HasUnsubscribe), boolToInt(sender.OneClick),
			boolToInt(sender.MatchedKeyword),
			targetKind, targetValue, sender.LatestSubject,
			sender.Score, boolToInt(sender.Eligible),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// LoadScan returns the cached scan for an account, or ErrNoScan.
func (s *Store) LoadScan(account string) (*Scan, error) {
	ctx := context.Background()

	cached := &Scan{Account: account}
	var scannedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT scanned_at, total_messages, failed_fetches
		FROM scans WHERE account = ?
	`, account).Scan(&scannedAt, &cached.TotalMessages, &cached.FailedFetches)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoScan
		}
		return nil, err
	}
	cached.ScannedAt = time.Unix(scannedAt, 0).UTC()

	rows, err := s.db.QueryContext(ctx, `
		SELECT address, display_name, message_count, message_ids,
			has_unsubscribe, one_click, matched_keyword,
			target_kind, target_value, latest_subject, score, eligible
		FROM senders WHERE account = ? ORDER BY position
	`, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sender scan.ScoredSender
		var idsJSON string
		var hasUnsub, oneClick, matchedKeyword, eligible int
		var targetKind sql.NullInt64
		var targetValue sql.NullString

		if err := rows.Scan(
			&sender.Address, &sender.DisplayName, &sender.MessageCount,
			&idsJSON, &hasUnsub, &oneClick, &matchedKeyword,
			&targetKind, &targetValue, &sender.LatestSubject,
			&sender.Score, &eligible,
		); err != nil {
			return nil, err
		}

		var ids []gmail.MessageID
		if err := json.Unmarshal([]byte(idsJSON), &ids); err != nil {
			return nil, fmt.Errorf("decode message ids for %s: %w", sender.Address, err)
		}
		sender.MessageIDs = ids
		sender.HasUnsubscribe = hasUnsub != 0
		sender.OneClick = oneClick != 0
		sender.MatchedKeyword = matchedKeyword != 0
		sender.Eligible = eligible != 0
		if targetKind.Valid {
			sender.Target = &scan.UnsubscribeTarget{
				Kind:  scan.TargetKind(targetKind.Int64),
				Value: targetValue.String,
			}
		}

		cached.Senders = append(cached.Senders, sender)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cached, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
