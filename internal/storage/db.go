package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meltforce/tinylifts/internal/models"
)

// DB wraps a pgxpool.Pool and implements Store on Postgres.
type DB struct {
	Pool *pgxpool.Pool
}

// New creates a new DB with a connection pool.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

// pgErr maps constraint violations to the package sentinels.
func pgErr(err error) error {
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		switch pe.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pe.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrNotFound, pe.ConstraintName)
		}
	}
	return err
}

const (
	pgExerciseCols = `id, name, category, muscle_group, target_reps, target_sets, default_weight`
	pgSessionCols  = `id, workout_id, start_time, end_time, total_volume, status`
	pgSetCols      = `id, session_id, exercise_id, weight, reps, logged_at, set_number`
	pgWorkoutQuery = `SELECT w.id, w.name, w.type, we.id, we.exercise_id, we.sort_order
		 FROM workouts w
		 LEFT JOIN workout_exercises we ON we.workout_id = w.id`
)

// Snapshot reads every table inside one repeatable-read transaction.
func (db *DB) Snapshot(ctx context.Context) (models.Snapshot, error) {
	snap := models.NewSnapshot()

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return snap, fmt.Errorf("beginning snapshot: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	exRows, err := tx.Query(ctx, `SELECT `+pgExerciseCols+` FROM exercises`)
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

	wRows, err := tx.Query(ctx, pgWorkoutQuery+` ORDER BY w.id, we.sort_order`)
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

	sRows, err := tx.Query(ctx, `SELECT `+pgSessionCols+` FROM sessions`)
	if err != nil {
		return snap, fmt.Errorf("querying sessions: %w", err)
	}
	sessions, err := scanSessions(sRows)
	sRows.Close()
	if err != nil {
		return snap, err
	}
	for _, s := range sessions {
		snap.Sessions[s.ID] = s
	}

	setRows, err := tx.Query(ctx, `SELECT `+pgSetCols+` FROM sets ORDER BY seq`)
	if err != nil {
		return snap, fmt.Errorf("querying sets: %w", err)
	}
	snap.Sets, err = scanSets(setRows)
	setRows.Close()
	if err != nil {
		return snap, err
	}

	return snap, tx.Commit(ctx)
}

func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+pgExerciseCols+` FROM exercises ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()
	return scanExercises(rows)
}

func (db *DB) GetExercise(ctx context.Context, id string) (models.Exercise, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+pgExerciseCols+` FROM exercises WHERE id = $1`, id)
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

func (db *DB) InsertExercise(ctx context.Context, ex models.Exercise) error {
	ex = withDefaults(ex)
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO exercises (`+pgExerciseCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		ex.ID, ex.Name, ex.Category, ex.MuscleGroup, ex.TargetReps, ex.TargetSets, ex.DefaultWeight)
	if err != nil {
		return fmt.Errorf("inserting exercise: %w", pgErr(err))
	}
	return nil
}

func (db *DB) UpdateExercise(ctx context.Context, ex models.Exercise) error {
	ex = withDefaults(ex)
	tag, err := db.Pool.Exec(ctx,
		`UPDATE exercises SET name = $2, category = $3, muscle_group = $4,
		 target_reps = $5, target_sets = $6, default_weight = $7
		 WHERE id = $1`,
		ex.ID, ex.Name, ex.Category, ex.MuscleGroup, ex.TargetReps, ex.TargetSets, ex.DefaultWeight)
	if err != nil {
		return fmt.Errorf("updating exercise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("exercise %s: %w", ex.ID, ErrNotFound)
	}
	return nil
}

func (db *DB) ListWorkouts(ctx context.Context) ([]models.Workout, error) {
	rows, err := db.Pool.Query(ctx, pgWorkoutQuery+` ORDER BY w.id, we.sort_order`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()
	return scanWorkouts(rows)
}

func (db *DB) GetWorkout(ctx context.Context, id string) (models.Workout, error) {
	rows, err := db.Pool.Query(ctx, pgWorkoutQuery+` WHERE w.id = $1 ORDER BY we.sort_order`, id)
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

func (db *DB) InsertWorkout(ctx context.Context, w models.Workout) error {
	if err := validateWorkout(w); err != nil {
		return err
	}
	if w.Type == "" {
		w.Type = "program"
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO workouts (id, name, type) VALUES ($1,$2,$3)`, w.ID, w.Name, w.Type); err != nil {
		return fmt.Errorf("inserting workout: %w", pgErr(err))
	}
	for _, we := range w.Exercises {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workout_exercises (id, workout_id, exercise_id, sort_order) VALUES ($1,$2,$3,$4)`,
			we.ID, w.ID, we.ExerciseID, we.Order); err != nil {
			return fmt.Errorf("inserting workout exercise: %w", pgErr(err))
		}
	}
	return tx.Commit(ctx)
}

func (db *DB) CreateSession(ctx context.Context, s models.Session) error {
	if s.Status == "" {
		s.Status = models.StatusActive
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sessions (`+pgSessionCols+`) VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.WorkoutID, models.Millis(s.StartTime), models.Millis(s.EndTime), s.TotalVolume, s.Status)
	if err != nil {
		return fmt.Errorf("inserting session: %w", pgErr(err))
	}
	return nil
}

func (db *DB) GetSession(ctx context.Context, id string) (models.Session, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+pgSessionCols+` FROM sessions WHERE id = $1`, id)
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

func (db *DB) LatestActiveSession(ctx context.Context) (models.Session, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+pgSessionCols+` FROM sessions WHERE status = 'active'
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

func (db *DB) CompleteSession(ctx context.Context, id string, end time.Time, volume float64) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE sessions SET end_time = $2, total_volume = $3, status = 'completed'
		 WHERE id = $1 AND status = 'active'`,
		id, models.Millis(end), volume)
	if err != nil {
		return fmt.Errorf("completing session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) DiscardSession(ctx context.Context, id string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM sets WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("deleting sets: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND status = 'active'`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("active session %s: %w", id, ErrNotFound)
	}
	return tx.Commit(ctx)
}

func (db *DB) CreateSet(ctx context.Context, set models.Set) error {
	if set.SetNumber == 0 {
		set.SetNumber = 1
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO sets (`+pgSetCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		set.ID, set.SessionID, set.ExerciseID, set.Weight, set.Reps, models.Millis(set.Timestamp), set.SetNumber)
	if err != nil {
		return fmt.Errorf("inserting set: %w", pgErr(err))
	}
	return nil
}

func (db *DB) CountSets(ctx context.Context, sessionID, exerciseID string) (int, error) {
	var n int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*)::int FROM sets WHERE session_id = $1 AND exercise_id = $2`,
		sessionID, exerciseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting sets: %w", err)
	}
	return n, nil
}

func (db *DB) SessionSets(ctx context.Context, sessionID string) ([]models.Set, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+pgSetCols+` FROM sets WHERE session_id = $1 ORDER BY logged_at, set_number, seq`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()
	return scanSets(rows)
}
