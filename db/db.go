package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lessslie/olimpo-checkin/types"
	_ "github.com/mattn/go-sqlite3"
)

const (
	SqliteDriver = "sqlite3"
	MysqlDriver  = "mysql"
	mysqlPrefix  = "mysql://"

	sqliteInitStmt = `
CREATE TABLE IF NOT EXISTS holds (
       subject TEXT NOT NULL,
       facility_id TEXT NOT NULL,
       held_until INTEGER NOT NULL,
       membership TEXT NOT NULL,
       PRIMARY KEY (subject)
) STRICT;`

	mysqlInitStmt = `
CREATE TABLE IF NOT EXISTS holds (
       subject VARCHAR(191) NOT NULL,
       facility_id VARCHAR(191) NOT NULL,
       held_until BIGINT NOT NULL,
       membership TEXT NOT NULL,
       PRIMARY KEY (subject)
)`
)

// DB keeps quota holds on the kiosk. A plain path opens a sqlite file, a
// mysql:// DSN opens a shared MySQL database.
type DB struct {
	db     *sql.DB
	driver string
	loc    *time.Location
}

func New(dsn, tz string) (*DB, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("error loading timezone %q: %w", tz, err)
	}

	driver, source, err := ParseDSN(dsn, loc)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("couldn't open database: %w", err)
	}

	d := &DB{db: db, driver: driver, loc: loc}
	if err := d.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	return d, nil
}

// ParseDSN picks the driver for dsn and returns the source string to open.
func ParseDSN(dsn string, loc *time.Location) (string, string, error) {
	if !strings.HasPrefix(dsn, mysqlPrefix) {
		if dsn == "" {
			return "", "", fmt.Errorf("empty dsn")
		}
		return SqliteDriver, dsn, nil
	}

	c, err := mysql.ParseDSN(strings.TrimPrefix(dsn, mysqlPrefix))
	if err != nil {
		return "", "", fmt.Errorf("error parsing mysql dsn: %w", err)
	}
	c.Loc = loc
	c.ParseTime = true
	return MysqlDriver, c.FormatDSN(), nil
}

func (db *DB) initialize() error {
	if db.driver == SqliteDriver {
		if _, err := db.db.Exec(sqliteInitStmt); err != nil {
			return err
		}
		if _, err := db.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("couldn't enable WAL mode: %w", err)
		}
		return nil
	}
	_, err := db.db.Exec(mysqlInitStmt)
	return err
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) Loc() *time.Location {
	return db.loc
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) PutHold(ctx context.Context, h types.Hold) error {
	return db.putHold(ctx, db.db, h)
}

func (db *DB) putHold(ctx context.Context, e execer, h types.Hold) error {
	m, err := json.Marshal(h.Membership)
	if err != nil {
		return fmt.Errorf("error encoding membership: %w", err)
	}

	stmt := `INSERT INTO holds(subject, facility_id, held_until, membership) VALUES (?, ?, ?, ?) ` +
		`ON CONFLICT(subject) DO UPDATE SET facility_id=?, held_until=?, membership=?`
	if db.driver == MysqlDriver {
		stmt = `INSERT INTO holds(subject, facility_id, held_until, membership) VALUES (?, ?, ?, ?) ` +
			`ON DUPLICATE KEY UPDATE facility_id=?, held_until=?, membership=?`
	}

	_, err = e.ExecContext(
		ctx,
		stmt,
		h.Subject,
		h.FacilityID,
		h.Until.Unix(),
		string(m),
		h.FacilityID,
		h.Until.Unix(),
		string(m),
	)
	if err != nil {
		return fmt.Errorf("error storing hold: %w", err)
	}
	return nil
}

// GetHold returns the hold for subject, if any. Expired holds are still
// returned; callers compare Until against their own clock.
func (db *DB) GetHold(ctx context.Context, subject string) (types.Hold, bool, error) {
	row := db.db.QueryRowContext(
		ctx,
		"SELECT subject, facility_id, held_until, membership FROM holds WHERE subject = ?",
		subject,
	)
	h, err := db.scan(row)
	if err == sql.ErrNoRows {
		return types.Hold{}, false, nil
	}
	if err != nil {
		return types.Hold{}, false, fmt.Errorf("error querying hold: %w", err)
	}
	return h, true, nil
}

func (db *DB) ListHolds(ctx context.Context) ([]types.Hold, error) {
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT subject, facility_id, held_until, membership FROM holds ORDER BY held_until, subject",
	)
	if err != nil {
		return nil, fmt.Errorf("error querying holds: %w", err)
	}
	defer rows.Close()

	var holds []types.Hold
	for rows.Next() {
		h, err := db.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

func (db *DB) DeleteHold(ctx context.Context, subject string) (bool, error) {
	res, err := db.db.ExecContext(ctx, "DELETE FROM holds WHERE subject = ?", subject)
	if err != nil {
		return false, fmt.Errorf("error deleting hold: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PurgeHolds drops every hold that ended at or before now.
func (db *DB) PurgeHolds(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.db.ExecContext(ctx, "DELETE FROM holds WHERE held_until <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("error purging holds: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) scan(s scanner) (types.Hold, error) {
	var h types.Hold
	var until int64
	var m string
	if err := s.Scan(&h.Subject, &h.FacilityID, &until, &m); err != nil {
		return types.Hold{}, err
	}
	if err := json.Unmarshal([]byte(m), &h.Membership); err != nil {
		return types.Hold{}, fmt.Errorf("error decoding membership: %w", err)
	}
	h.Until = time.Unix(until, 0).In(db.loc)
	return h, nil
}
