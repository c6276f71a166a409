package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultLocalDBName = "okey81_local.db"

type SQLiteService struct {
	db             *sql.DB
	retentionLimit int
}

func NewSQLiteServiceFromEnv() (*SQLiteService, error) {
	dbPath, err := ledgerLocalDatabasePathFromEnv()
	if err != nil {
		return nil, err
	}
	return NewSQLiteService(dbPath)
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{
		db:             db,
		retentionLimit: envIntOrDefault("LEDGER_ROUND_RETENTION", 0),
	}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) RecordRound(ctx context.Context, rec RoundRecord) error {
	if strings.TrimSpace(rec.RoomID) == "" || rec.Round <= 0 {
		return fmt.Errorf("invalid round record: room=%q round=%d", rec.RoomID, rec.Round)
	}
	if rec.PlayedAt.IsZero() {
		rec.PlayedAt = time.Now().UTC()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	playedAtMs := rec.PlayedAt.UTC().UnixMilli()
	nowMs := time.Now().UTC().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO ledger_rounds (
    room_id, round_no, winner_seat, reason, played_at_ms, created_at_ms
)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (room_id, round_no) DO UPDATE
SET
    winner_seat = excluded.winner_seat,
    reason = excluded.reason,
    played_at_ms = excluded.played_at_ms
`, rec.RoomID, rec.Round, rec.Winner, rec.Reason, playedAtMs, nowMs)
	if err != nil {
		return err
	}

	var roundRef int64
	if err := tx.QueryRowContext(ctx, `
SELECT id FROM ledger_rounds WHERE room_id = ? AND round_no = ?
`, rec.RoomID, rec.Round).Scan(&roundRef); err != nil {
		return err
	}

	for seat, sr := range rec.Seats {
		_, err := tx.ExecContext(ctx, `
INSERT INTO ledger_round_seats (
    round_ref, seat, user_id, name, delta, score
)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (round_ref, seat) DO UPDATE
SET
    user_id = excluded.user_id,
    name = excluded.name,
    delta = excluded.delta,
    score = excluded.score
`, roundRef, seat, sr.UserID, sr.Name, sr.Delta, sr.Score)
		if err != nil {
			return err
		}
	}

	if s.retentionLimit > 0 {
		_, err = tx.ExecContext(ctx, `
DELETE FROM ledger_rounds
WHERE room_id = ?
  AND id IN (
      SELECT id
      FROM ledger_rounds
      WHERE room_id = ?
      ORDER BY round_no DESC
      LIMIT -1 OFFSET ?
  )
`, rec.RoomID, rec.RoomID, s.retentionLimit)
		if err != nil {
			log.Printf("[Ledger] trim room rounds failed: room=%s err=%v", rec.RoomID, err)
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteService) RoomHistory(ctx context.Context, roomID string, limit int) ([]RoundRecord, error) {
	if strings.TrimSpace(roomID) == "" {
		return []RoundRecord{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	limit = clampHistoryLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.room_id, r.round_no, r.winner_seat, r.reason, r.played_at_ms,
       s.seat, s.user_id, s.name, s.delta, s.score
FROM ledger_rounds r
JOIN ledger_round_seats s ON s.round_ref = r.id
WHERE r.id IN (
    SELECT id
    FROM ledger_rounds
    WHERE room_id = ?
    ORDER BY round_no DESC
    LIMIT ?
)
ORDER BY r.round_no DESC, s.seat ASC
`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteRoundRows(rows, limit)
}

func (s *SQLiteService) UserHistory(ctx context.Context, userID uint64, limit int) ([]RoundRecord, error) {
	if userID == 0 {
		return []RoundRecord{}, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	limit = clampHistoryLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
SELECT r.id, r.room_id, r.round_no, r.winner_seat, r.reason, r.played_at_ms,
       s.seat, s.user_id, s.name, s.delta, s.score
FROM ledger_rounds r
JOIN ledger_round_seats s ON s.round_ref = r.id
WHERE r.id IN (
    SELECT round_ref
    FROM ledger_round_seats
    WHERE user_id = ?
    ORDER BY round_ref DESC
    LIMIT ?
)
ORDER BY r.id DESC, s.seat ASC
`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSQLiteRoundRows(rows, limit)
}

// sqlite 存毫秒时间戳而不是 timestamptz, 折叠逻辑与 postgres 版本一致。
func collectSQLiteRoundRows(rows *sql.Rows, limit int) ([]RoundRecord, error) {
	records := make([]RoundRecord, 0, limit)
	var currentID int64 = -1
	var current *RoundRecord
	for rows.Next() {
		var (
			id         int64
			rec        RoundRecord
			playedAtMs int64
			seat       int
			sr         SeatResult
		)
		if err := rows.Scan(&id, &rec.RoomID, &rec.Round, &rec.Winner, &rec.Reason, &playedAtMs,
			&seat, &sr.UserID, &sr.Name, &sr.Delta, &sr.Score); err != nil {
			return nil, err
		}
		rec.PlayedAt = time.UnixMilli(playedAtMs).UTC()
		if id != currentID {
			records = append(records, rec)
			current = &records[len(records)-1]
			currentID = id
		}
		if seat >= 0 && seat < len(current.Seats) {
			current.Seats[seat] = sr
		}
	}
	return records, rows.Err()
}

func ensureSQLiteLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS ledger_rounds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    room_id TEXT NOT NULL,
    round_no INTEGER NOT NULL,
    winner_seat INTEGER NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    played_at_ms INTEGER NOT NULL,
    created_at_ms INTEGER NOT NULL,
    UNIQUE (room_id, round_no)
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_rounds_room ON ledger_rounds(room_id, round_no DESC)`,
		`
CREATE TABLE IF NOT EXISTS ledger_round_seats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    round_ref INTEGER NOT NULL REFERENCES ledger_rounds(id) ON DELETE CASCADE,
    seat INTEGER NOT NULL,
    user_id INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    delta INTEGER NOT NULL,
    score INTEGER NOT NULL,
    UNIQUE (round_ref, seat)
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_round_seats_user ON ledger_round_seats(user_id, round_ref DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func ledgerLocalDatabasePathFromEnv() (string, error) {
	candidates := []string{
		strings.TrimSpace(os.Getenv("LEDGER_LOCAL_DATABASE_PATH")),
		strings.TrimSpace(os.Getenv("AUTH_LOCAL_DATABASE_PATH")),
		strings.TrimSpace(os.Getenv("LOCAL_DATABASE_PATH")),
	}
	for _, candidate := range candidates {
		if candidate != "" {
			return filepath.Clean(candidate), nil
		}
	}

	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userConfigDir, "Okey81", defaultLocalDBName), nil
}
