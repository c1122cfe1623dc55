package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meltforce/tinylifts/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLite implements Store on an embedded SQLite database file.
// The handle is limited to a single connection, which serialises writers.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir for %s: %w", path, err)
		}
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if err := runSQLiteMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// sqliteErr maps constraint violations to the package sentinels.
func sqliteErr(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", ErrConflict, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}
	return err
}

const (
	sqliteExerciseCols = `id, name, category, muscle_group, target_reps, target_sets, default_weight`
	sqliteSessionCols  = `id, workout_id, start_time, end_time, total_volume, status`
	sqliteSetCols      = `id, session_id, exercise_id, weight, reps, logged_at, set_number`
	sqliteWorkoutQuery = `SELECT w.id, w.name, w.type, we.id, we.exercise_id, we.sort_order
		 FROM workouts w
		 LEFT JOIN workout_exercises we ON we.workout_id = w.id`
)

// Snapshot reads every table inside one transaction.
func (s *SQLite) Snapshot(ctx context.Context) (models.Snapshot, error) {
	snap := models.NewSnapshot()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return snap, fmt.Errorf("beginning snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exRows, err := tx.QueryContext(ctx, `SELECT `+sqliteExerciseCols+` FROM exercises`)
	if err != nil {
		return snap, fmt.Errorf("querying exercises: %w", err)
	}
	exercises, err := scanExercises(exRows)
	exRows.Close()
	if err != nil {
		return snap, err
	}
	for _, ex := range exercises {
		snap.Exercises[ex.ID] = ex
	}

	wRows, err := tx.QueryContext(ctx, sqliteWorkoutQuery+` ORDER BY w.id, we.sort_order`)
	if err != nil {
		return snap, fmt.Errorf("querying workouts: %w", err)
	}
	workouts, err := scanWorkouts(wRows)
	wRows.Close()
	if err != nil {
		return snap, err
	}
	for _, w := range workouts {
		snap.Workouts[w.ID] = w
	}

	sRows, err := tx.QueryContext(ctx, `SELECT `+sqliteSessionCols+` FROM sessions`)
	if err != nil {
		return snap, fmt.Errorf("querying sessions: %w", err)
	}
	sessions, err := scanSessions(sRows)
	sRows.Close()
	if err != nil {
		return snap, err
	}
	for _, sess := range sessions {
		snap.Sessions[sess.ID] = sess
	}

	setRows, err := tx.QueryContext(ctx, `SELECT `+sqliteSetCols+` FROM sets ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("querying sets: %w", err)
	}
	snap.Sets, err = scanSets(setRows)
	setRows.Close()
	if err != nil {
		return snap, err
	}

	return snap, tx.Commit()
}

func (s *SQLite) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteExerciseCols+` FROM exercises ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()
	return scanExercises(rows)
}

func (s *SQLite) GetExercise(ctx context.Context, id string) (models.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteExerciseCols+` FROM exercises WHERE id = ?`, id)
	if err != nil {
		return models.Exercise{}, fmt.Errorf("querying exercise: %w", err)
	}
	defer rows.Close()
	result, err := scanExercises(rows)
	if err != nil {
		return models.Exercise{}, err
	}
	if len(result) == 0 {
		return models.Exercise{}, fmt.Errorf("exercise %s: %w", id, ErrNotFound)
	}
	return result[0], nil
}

func (s *SQLite) InsertExercise(ctx context.Context, ex models.Exercise) error {
	ex = withDefaults(ex)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exercises (`+sqliteExerciseCols+`) VALUES (?,?,?,?,?,?,?)`,
		ex.ID, ex.Name, ex.Category, ex.MuscleGroup, ex.TargetReps, ex.TargetSets, ex.DefaultWeight)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", sqliteErr(err))
	}
	return nil
}

func (s *SQLite) UpdateExercise(ctx context.Context, ex models.Exercise) error {
	ex = withDefaults(ex)
	res, err := s.db.ExecContext(ctx,
		`UPDATE exercises SET name = ?, category = ?, muscle_group = ?,
		 target_reps = ?, target_sets = ?, default_weight = ?
		 WHERE id = ?`,
		ex.Name, ex.Category, ex.MuscleGroup, ex.TargetReps, ex.TargetSets, ex.DefaultWeight, ex.ID)
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("exercise %s: %w", ex.ID, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	rows, err := s.db.QueryContext(ctx, sqliteWorkoutQuery+` ORDER BY w.id, we.sort_order`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()
	return scanWorkouts(rows)
}

func (s *SQLite) GetWorkout(ctx context.Context, id string) (models.Workout, error) {
	rows, err := s.db.QueryContext(ctx, sqliteWorkoutQuery+` WHERE w.id = ? ORDER BY we.sort_order`, id)
	if err != nil {
		return models.Workout{}, fmt.Errorf("querying workout: %w", err)
	}
	defer rows.Close()
	result, err := scanWorkouts(rows)
	if err != nil {
		return models.Workout{}, err
	}
	if len(result) == 0 {
		return models.Workout{}, fmt.Errorf("workout %s: %w", id, ErrNotFound)
	}
	return result[0], nil
}

func (s *SQLite) InsertWorkout(ctx context.Context, w models.Workout) error {
	if err := validateWorkout(w); err != nil {
		return err
	}
	if w.Type == "" {
		w.Type = "program"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT INTO workouts (id, name, type) VALUES (?,?,?)`, w.ID, w.Name, w.Type); err != nil {
		return fmt.Errorf("inserting workout: %w", sqliteErr(err))
	}
	for _, we := range w.Exercises {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO workout_exercises (id, workout_id, exercise_id, sort_order) VALUES (?,?,?,?)`,
			we.ID, w.ID, we.ExerciseID, we.Order); err != nil {
			return fmt.Errorf("inserting workout exercise: %w", sqliteErr(err))
		}
	}
	return tx.Commit()
}

func (s *SQLite) CreateSession(ctx context.Context, sess models.Session) error {
	if sess.Status == "" {
		sess.Status = models.StatusActive
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (`+sqliteSessionCols+`) VALUES (?,?,?,?,?,?)`,
		sess.ID, sess.WorkoutID, models.Millis(sess.StartTime), models.Millis(sess.EndTime), sess.TotalVolume, sess.Status)
	if err != nil {
		return fmt.Errorf("inserting session: %w", sqliteErr(err))
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, id string) (models.Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteSessionCols+` FROM sessions WHERE id = ?`, id)
	if err != nil {
		return models.Session{}, fmt.Errorf("querying session: %w", err)
	}
	defer rows.Close()
	result, err := scanSessions(rows)
	if err != nil {
		return models.Session{}, err
	}
	if len(result) == 0 {
		return models.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return result[0], nil
}

func (s *SQLite) LatestActiveSession(ctx context.Context) (models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSessionCols+` FROM sessions WHERE status = 'active'
		 ORDER BY start_time DESC, id DESC LIMIT 1`)
	if err != nil {
		return models.Session{}, fmt.Errorf("querying active session: %w", err)
	}
	defer rows.Close()
	result, err := scanSessions(rows)
	if err != nil {
		return models.Session{}, err
	}
	if len(result) == 0 {
		return models.Session{}, fmt.Errorf("active session: %w", ErrNotFound)
	}
	return result[0], nil
}

func (s *SQLite) CompleteSession(ctx context.Context, id string, end time.Time, volume float64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET end_time = ?, total_volume = ?, status = 'completed'
		 WHERE id = ? AND status = 'active'`,
		models.Millis(end), volume, id)
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) DiscardSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting sets: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ? AND status = 'active'`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

func (s *SQLite) CreateSet(ctx context.Context, set models.Set) error {
	if set.SetNumber == 0 {
		set.SetNumber = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sets (`+sqliteSetCols+`) VALUES (?,?,?,?,?,?,?)`,
		set.ID, set.SessionID, set.ExerciseID, set.Weight, set.Reps, models.Millis(set.Timestamp), set.SetNumber)
	if err != nil {
		return fmt.Errorf("inserting set: %w", sqliteErr(err))
	}
	return nil
}

func (s *SQLite) CountSets(ctx context.Context, sessionID, exerciseID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sets WHERE session_id = ? AND exercise_id = ?`,
		sessionID, exerciseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sets: %w", err)
	}
	return n, nil
}

func (s *SQLite) SessionSets(ctx context.Context, sessionID string) ([]models.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteSetCols+` FROM sets WHERE session_id = ? ORDER BY logged_at, set_number, seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()
	return scanSets(rows)
}
