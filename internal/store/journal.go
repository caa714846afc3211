package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/liftfop/internal/engine"
)

// Append implements engine.Journal. Entries are unique per (platform, seq)
// and per id; appending the same entry twice is an error.
func (s *Store) Append(ctx context.Context, e engine.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal (platform, seq, id, kind, hash, payload, state, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Platform,
		e.Seq,
		e.ID,
		e.Kind,
		e.Hash,
		string(e.Payload),
		string(e.State),
		e.At.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append journal entry %d: %w", e.Seq, err)
	}
	return nil
}

// Entries returns the journal of a platform in sequence order. Returns an
// empty slice (not nil) if nothing was journaled.
func (s *Store) Entries(ctx context.Context, platform string) ([]engine.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT platform, seq, id, kind, hash, payload, state, at
		FROM journal
		WHERE platform = ?
		ORDER BY seq ASC
	`, platform)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	entries := []engine.Entry{}
	for rows.Next() {
		var e engine.Entry
		var payload, state string
		var at int64
		if err := rows.Scan(&e.Platform, &e.Seq, &e.ID, &e.Kind, &e.Hash, &payload, &state, &at); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.Payload = []byte(payload)
		e.State = engine.State(state)
		e.At = time.UnixMilli(at).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}
	return entries, nil
}

// LastSeq returns the highest sequence number journaled for a platform,
// or 0. A restarted engine continues numbering from here.
func (s *Store) LastSeq(ctx context.Context, platform string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM journal WHERE platform = ?`, platform).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}
