package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/yelpcamp/apiserver/types"
)

const commentColumns = `id, text, author_id, author_username, created_at, updated_at`

// CommentRepository handles persistence for comments.
type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Get(ctx context.Context, id int) (types.Comment, error) {
	const query = `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	comment, err := scanComment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}
	return comment, nil
}

// ListByIDs returns the comments with the given ids ordered by id. Missing
// ids are skipped.
func (r *CommentRepository) ListByIDs(ctx context.Context, ids []int) ([]types.Comment, error) {
	if len(ids) == 0 {
		return []types.Comment{}, nil
	}

	const query = `SELECT ` + commentColumns + ` FROM comments WHERE id = ANY($1) ORDER BY id`
	arg := make(pq.Int64Array, 0, len(ids))
	for _, id := range ids {
		arg = append(arg, int64(id))
	}
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]types.Comment, 0, len(ids))
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateForCampground inserts the comment and appends its reference to the
// campground in one transaction.
func (r *CommentRepository) CreateForCampground(ctx context.Context, campgroundID int, comment types.Comment) (types.Comment, error) {
	now := time.Now()
	comment.CreatedAt = now
	comment.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Comment{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertComment = `
		INSERT INTO comments (text, author_id, author_username, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertComment,
		comment.Text,
		comment.Author.ID,
		comment.Author.Username,
		comment.CreatedAt,
		comment.UpdatedAt,
	).Scan(&comment.ID); err != nil {
		return types.Comment{}, err
	}

	const insertRef = `INSERT INTO campground_comments (campground_id, comment_id) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertRef, campgroundID, comment.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Comment{}, err
	}
	return comment, nil
}

// Update writes the comment text.
func (r *CommentRepository) Update(ctx context.Context, comment types.Comment) (types.Comment, error) {
	comment.UpdatedAt = time.Now()

	const query = `
		UPDATE comments
		SET text = $1,
			updated_at = $2
		WHERE id = $3
		RETURNING ` + commentColumns
	updated, err := scanComment(r.db.QueryRowContext(ctx, query, comment.Text, comment.UpdatedAt, comment.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}
	return updated, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM comments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanComment(row rowScanner) (types.Comment, error) {
	var comment types.Comment
	err := row.Scan(
		&comment.ID,
		&comment.Text,
		&comment.Author.ID,
		&comment.Author.Username,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	return comment, err
}
