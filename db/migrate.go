package db

import (
	"context"
	"fmt"
	"log"
)

// CountHolds returns how many holds are stored.
func (db *DB) CountHolds(ctx context.Context) (int64, error) {
	var n int64
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM holds").Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting holds: %w", err)
	}
	return n, nil
}

// MigrateHolds copies every hold in src into dst in a single transaction.
// Holds already in dst for the same subject are replaced. onRow, if set, is
// called after each copied hold.
func MigrateHolds(ctx context.Context, src, dst *DB, onRow func()) (int, error) {
	holds, err := src.ListHolds(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := dst.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting transaction: %w", err)
	}

	for _, h := range holds {
		if err := dst.putHold(ctx, tx, h); err != nil {
			if rberr := tx.Rollback(); rberr != nil {
				return 0, rberr
			}
			return 0, err
		}
		if onRow != nil {
			onRow()
		}
	}

	log.Printf("Running commit for %d holds", len(holds))
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing holds: %w", err)
	}
	return len(holds), nil
}
