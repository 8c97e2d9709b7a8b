package polls

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Constraint names from pkg/database/migrations/001_schema.sql. The unique
// violations they raise are the authoritative guards for the single-active
// and one-vote-per-student invariants.
const (
	constraintOneActivePoll = "polls_one_active"
	constraintOneVote       = "votes_poll_id_student_name_key"
)

// Repository is the PostgreSQL-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertPoll inserts a new active poll. The partial unique index on active
// status rejects a second active poll, surfaced as ErrActivePollExists.
func (r *Repository) InsertPoll(ctx context.Context, p *models.Poll) error {
	const query = `INSERT INTO polls (id, question, options, correct_option_index, timer_duration, status, started_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
		RETURNING id, started_at, created_at`
	err := r.pool.QueryRow(ctx, query, p.Question, p.Options, p.CorrectOptionIndex, p.TimerDuration, p.Status, p.StartedAt).
		Scan(&p.ID, &p.StartedAt, &p.CreatedAt)
	if isUniqueViolation(err, constraintOneActivePoll) {
		return ErrActivePollExists
	}
	return err
}

// GetPoll returns a poll by ID, or ErrPollNotFound.
func (r *Repository) GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	const query = `SELECT id, question, options, correct_option_index, timer_duration, status, started_at, created_at
		FROM polls WHERE id = $1`
	p, err := scanPoll(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPollNotFound
	}
	return p, err
}

// GetActivePoll returns the single active poll, or (nil, nil) when none.
func (r *Repository) GetActivePoll(ctx context.Context) (*models.Poll, error) {
	const query = `SELECT id, question, options, correct_option_index, timer_duration, status, started_at, created_at
		FROM polls WHERE status = 'active'`
	p, err := scanPoll(r.pool.QueryRow(ctx, query))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// CompletePoll transitions a poll from active to completed. The status guard
// in the WHERE clause makes the transition safe against double execution:
// whichever of manual end or scheduled end runs first wins, the other
// matches zero rows.
func (r *Repository) CompletePoll(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `UPDATE polls SET status = 'completed' WHERE id = $1 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertVote inserts a vote. A duplicate (poll_id, student_name) pair is
// rejected by the unique constraint and surfaced as ErrAlreadyVoted; there is
// deliberately no ON CONFLICT clause, a second vote must never overwrite.
func (r *Repository) InsertVote(ctx context.Context, v *models.Vote) error {
	const query = `INSERT INTO votes (id, poll_id, student_name, selected_option)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query, v.PollID, v.StudentName, v.SelectedOption).
		Scan(&v.ID, &v.CreatedAt)
	if isUniqueViolation(err, constraintOneVote) {
		return ErrAlreadyVoted
	}
	return err
}

// HasVoted reports whether a vote exists for the (poll, student name) pair.
func (r *Repository) HasVoted(ctx context.Context, pollID uuid.UUID, studentName string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM votes WHERE poll_id = $1 AND student_name = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, pollID, studentName).Scan(&exists)
	return exists, err
}

// CountVotesByOption returns vote counts grouped by selected option index.
// Options with no votes are absent from the map.
func (r *Repository) CountVotesByOption(ctx context.Context, pollID uuid.UUID) (map[int]int, error) {
	const query = `SELECT selected_option, COUNT(*) FROM votes WHERE poll_id = $1 GROUP BY selected_option`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var option, count int
		if err := rows.Scan(&option, &count); err != nil {
			return nil, err
		}
		counts[option] = count
	}
	return counts, rows.Err()
}

// ListCompletedPolls returns completed polls, newest created first.
func (r *Repository) ListCompletedPolls(ctx context.Context, limit int) ([]*models.Poll, error) {
	const query = `SELECT id, question, options, correct_option_index, timer_duration, status, started_at, created_at
		FROM polls WHERE status = 'completed' ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []*models.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var p models.Poll
	err := row.Scan(&p.ID, &p.Question, &p.Options, &p.CorrectOptionIndex, &p.TimerDuration, &p.Status, &p.StartedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
