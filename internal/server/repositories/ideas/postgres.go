package ideas

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/echolater/internal/common"
	"github.com/dmitrijs2005/echolater/internal/dbx"
	"github.com/dmitrijs2005/echolater/internal/server/models"
	"github.com/dmitrijs2005/echolater/internal/server/timecat"
	"github.com/lib/pq"
)

const ideaColumns = `id, user_id, audio_key, audio_file_name, audio_duration, transcription,
	extracted_time, time_category, tags, is_completed, completed_at, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdea(s rowScanner) (*models.Idea, error) {
	var (
		idea                 models.Idea
		audioKey, audioName  sql.NullString
		extracted, completed sql.NullTime
		category             string
		tags                 pq.StringArray
	)

	err := s.Scan(&idea.ID, &idea.UserID, &audioKey, &audioName, &idea.AudioDuration, &idea.Transcription,
		&extracted, &category, &tags, &idea.IsCompleted, &completed, &idea.CreatedAt, &idea.UpdatedAt)
	if err != nil {
		return nil, err
	}

	idea.AudioKey = audioKey.String
	idea.AudioFileName = audioName.String
	idea.TimeCategory = timecat.Category(category)
	idea.Tags = []string(tags)
	if extracted.Valid {
		t := extracted.Time
		idea.ExtractedTime = &t
	}
	if completed.Valid {
		t := completed.Time
		idea.CompletedAt = &t
	}
	return &idea, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// tagsArray never returns a NULL array; the column is NOT NULL.
func tagsArray(tags []string) pq.StringArray {
	if tags == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(tags)
}

// Create inserts the idea and returns it with the generated id and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, idea *models.Idea) (*models.Idea, error) {
	query := `
		INSERT INTO ideas (user_id, audio_key, audio_file_name, audio_duration, transcription,
			extracted_time, time_category, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		idea.UserID, nullString(idea.AudioKey), nullString(idea.AudioFileName), idea.AudioDuration,
		idea.Transcription, nullTime(idea.ExtractedTime), string(idea.TimeCategory), tagsArray(idea.Tags),
	).Scan(&idea.ID, &idea.CreatedAt, &idea.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return idea, nil
}

func (r *PostgresRepository) getByID(ctx context.Context, id string, lock bool) (*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	idea, err := scanIdea(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return idea, nil
}

// GetByID returns the idea with the given id or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Idea, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate is GetByID with a row lock held until the surrounding
// transaction ends.
func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Idea, error) {
	return r.getByID(ctx, id, true)
}

// escapeLike quotes the ILIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildWhere renders the filter as a WHERE clause with positional args.
func buildWhere(userID string, filter models.IdeaFilter) (string, []any) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	if filter.Category != nil {
		args = append(args, string(*filter.Category))
		conds = append(conds, fmt.Sprintf("time_category = $%d", len(args)))
	}
	if filter.IsCompleted != nil {
		args = append(args, *filter.IsCompleted)
		conds = append(conds, fmt.Sprintf("is_completed = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+escapeLike(s)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			`(transcription ILIKE $%d ESCAPE '\' OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%d ESCAPE '\'))`, n, n))
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of the user's ideas matching filter together with the
// total number of matches.
func (r *PostgresRepository) List(ctx context.Context, userID string, filter models.IdeaFilter) ([]*models.Idea, int, error) {
	where, args := buildWhere(userID, filter)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM ideas`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT ` + ideaColumns + ` FROM ideas` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	result, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// ListAll returns every idea the user owns, newest first.
func (r *PostgresRepository) ListAll(ctx context.Context, userID string) ([]*models.Idea, error) {
	query := `SELECT ` + ideaColumns + ` FROM ideas WHERE user_id = $1 ORDER BY created_at DESC`
	return r.query(ctx, query, userID)
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.Idea, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Idea, 0)
	for rows.Next() {
		idea, err := scanIdea(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// Update writes back the mutable fields of idea and refreshes UpdatedAt.
// If the row is gone, it returns common.ErrorNotFound.
func (r *PostgresRepository) Update(ctx context.Context, idea *models.Idea) error {
	query := `
		UPDATE ideas SET
			transcription = $2,
			extracted_time = $3,
			time_category = $4,
			tags = $5,
			is_completed = $6,
			completed_at = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		idea.ID, idea.Transcription, nullTime(idea.ExtractedTime), string(idea.TimeCategory),
		tagsArray(idea.Tags), idea.IsCompleted, nullTime(idea.CompletedAt),
	).Scan(&idea.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the idea by id. If no row matched, it returns
// common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
