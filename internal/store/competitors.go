package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/liftfop/internal/athlete"
)

// ErrNotFound is returned when a competitor or group does not exist.
var ErrNotFound = errors.New("not found")

// Group is a session of athletes lifting on one platform.
type Group struct {
	ID       string
	Platform string
	Name     string
	Done     bool
}

// UpsertPlatform registers a platform. Existing platforms are left alone.
func (s *Store) UpsertPlatform(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO platforms (name) VALUES (?)
		ON CONFLICT(name) DO NOTHING
	`, name)
	if err != nil {
		return fmt.Errorf("upsert platform %s: %w", name, err)
	}
	return nil
}

// Platforms returns every platform name in lexical order.
func (s *Store) Platforms(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM platforms ORDER BY name COLLATE BINARY`)
	if err != nil {
		return nil, fmt.Errorf("query platforms: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate platforms: %w", err)
	}
	return names, nil
}

// UpsertGroup creates a group or updates its name and platform. The done
// flag is kept; use MarkGroupDone to change it.
func (s *Store) UpsertGroup(ctx context.Context, g Group) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO groups (id, platform, name, done) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET platform = excluded.platform, name = excluded.name
	`, g.ID, g.Platform, g.Name, boolToInt(g.Done))
	if err != nil {
		return fmt.Errorf("upsert group %s: %w", g.ID, err)
	}
	return nil
}

// Groups returns the groups of a platform ordered by id.
func (s *Store) Groups(ctx context.Context, platform string) ([]Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform, name, done
		FROM groups
		WHERE platform = ?
		ORDER BY id COLLATE BINARY ASC
	`, platform)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	groups := []Group{}
	for rows.Next() {
		var g Group
		var done int
		if err := rows.Scan(&g.ID, &g.Platform, &g.Name, &done); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Done = done != 0
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}
	return groups, nil
}

// MarkGroupDone sets or clears the done flag of a group.
func (s *Store) MarkGroupDone(ctx context.Context, groupID string, done bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE groups SET done = ? WHERE id = ?`, boolToInt(done), groupID)
	if err != nil {
		return fmt.Errorf("mark group %s done: %w", groupID, err)
	}
	return expectOne(res, "group "+groupID)
}

// UpsertCompetitor registers a competitor. The athlete's group must
// exist. Entry data (names, category, team, numbers, group) is always
// written; recorded lifts, the requested weight and ranks only when the
// competitor is new, so seeding again never erases results.
func (s *Store) UpsertCompetitor(ctx context.Context, a *athlete.Athlete) error {
	lifts, err := marshalLifts(a.Lifts)
	if err != nil {
		return fmt.Errorf("upsert competitor %s: %w", a.ID, err)
	}
	seq, err := marshalLiftSeq(a.LiftSeq)
	if err != nil {
		return fmt.Errorf("upsert competitor %s: %w", a.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO competitors
		(id, group_id, first_name, last_name, gender, category, team,
		 start_number, lot_number, entry_total, attempts_done, requested,
		 clean_jerk_start, lifts, lift_seq, forced, snatch_rank, cj_rank, total_rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			gender = excluded.gender,
			category = excluded.category,
			team = excluded.team,
			start_number = excluded.start_number,
			lot_number = excluded.lot_number,
			entry_total = excluded.entry_total
	`,
		a.ID, a.GroupID, a.FirstName, a.LastName, a.Gender, a.Category, a.Team,
		a.StartNumber, a.LotNumber, a.EntryTotal, a.AttemptsDone, a.Requested,
		a.CleanJerkStart, lifts, seq, boolToInt(a.ForcedAsCurrent),
		a.Ranks.Snatch, a.Ranks.CleanJerk, a.Ranks.Total,
	)
	if err != nil {
		return fmt.Errorf("upsert competitor %s: %w", a.ID, err)
	}
	return nil
}

// SetEligible includes or excludes a competitor from its group's lifting.
func (s *Store) SetEligible(ctx context.Context, id string, eligible bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE competitors SET eligible = ? WHERE id = ?`, boolToInt(eligible), id)
	if err != nil {
		return fmt.Errorf("set eligible %s: %w", id, err)
	}
	return expectOne(res, "competitor "+id)
}

const competitorColumns = `
	id, group_id, first_name, last_name, gender, category, team,
	start_number, lot_number, entry_total, attempts_done, requested,
	clean_jerk_start, lifts, lift_seq, forced, snatch_rank, cj_rank, total_rank`

// EligibleCompetitors implements engine.Repository: the eligible
// competitors of a group in start order, as fresh copies.
func (s *Store) EligibleCompetitors(ctx context.Context, groupID string) ([]*athlete.Athlete, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+competitorColumns+`
		FROM competitors
		WHERE group_id = ? AND eligible = 1
		ORDER BY start_number ASC, id COLLATE BINARY ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query competitors: %w", err)
	}
	defer rows.Close()

	athletes := []*athlete.Athlete{}
	for rows.Next() {
		a, err := scanCompetitor(rows)
		if err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competitors: %w", err)
	}
	return athletes, nil
}

// Competitor reads one competitor. Returns ErrNotFound if it does not
// exist.
func (s *Store) Competitor(ctx context.Context, id string) (*athlete.Athlete, error) {
	row := s.db.QueryRowContext(ctx, `SELECT`+competitorColumns+` FROM competitors WHERE id = ?`, id)
	a, err := scanCompetitor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("competitor %s: %w", id, ErrNotFound)
	}
	return a, err
}

// SaveLift implements engine.Repository. It writes what a lift outcome
// changes: recorded lifts, requested weight and the forced flag.
func (s *Store) SaveLift(ctx context.Context, a *athlete.Athlete) error {
	lifts, err := marshalLifts(a.Lifts)
	if err != nil {
		return fmt.Errorf("save lift %s: %w", a.ID, err)
	}
	seq, err := marshalLiftSeq(a.LiftSeq)
	if err != nil {
		return fmt.Errorf("save lift %s: %w", a.ID, err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE competitors
		SET attempts_done = ?, requested = ?, clean_jerk_start = ?, lifts = ?, lift_seq = ?, forced = ?
		WHERE id = ?
	`, a.AttemptsDone, a.Requested, a.CleanJerkStart, lifts, seq, boolToInt(a.ForcedAsCurrent), a.ID)
	if err != nil {
		return fmt.Errorf("save lift %s: %w", a.ID, err)
	}
	return expectOne(res, "competitor "+a.ID)
}

// SaveRanks implements engine.Repository. All ranks are written in one
// transaction; nothing else on the competitor changes.
func (s *Store) SaveRanks(ctx context.Context, athletes []*athlete.Athlete) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save ranks: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE competitors SET snatch_rank = ?, cj_rank = ?, total_rank = ? WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("save ranks: prepare: %w", err)
	}
	defer stmt.Close()

	for _, a := range athletes {
		if _, err := stmt.ExecContext(ctx, a.Ranks.Snatch, a.Ranks.CleanJerk, a.Ranks.Total, a.ID); err != nil {
			return fmt.Errorf("save ranks %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save ranks: commit: %w", err)
	}
	return nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompetitor(row rowScanner) (*athlete.Athlete, error) {
	var a athlete.Athlete
	var lifts, seq string
	var forced int
	err := row.Scan(
		&a.ID, &a.GroupID, &a.FirstName, &a.LastName, &a.Gender, &a.Category, &a.Team,
		&a.StartNumber, &a.LotNumber, &a.EntryTotal, &a.AttemptsDone, &a.Requested,
		&a.CleanJerkStart, &lifts, &seq, &forced,
		&a.Ranks.Snatch, &a.Ranks.CleanJerk, &a.Ranks.Total,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan competitor: %w", err)
	}
	if a.Lifts, err = unmarshalLifts(lifts); err != nil {
		return nil, err
	}
	if a.LiftSeq, err = unmarshalLiftSeq(seq); err != nil {
		return nil, err
	}
	a.ForcedAsCurrent = forced != 0
	return &a, nil
}

func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
