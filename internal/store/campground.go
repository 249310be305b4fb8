package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/yelpcamp/apiserver/types"
)

const campgroundColumns = `c.id, c.name, c.price, c.description, c.image, c.image_id, c.location, c.lat, c.lng,
		c.author_id, c.author_username, c.created_at, c.updated_at,
		ARRAY(SELECT cc.comment_id FROM campground_comments cc WHERE cc.campground_id = c.id ORDER BY cc.comment_id)`

// CampgroundRepository handles persistence for campgrounds.
type CampgroundRepository struct {
	db *sql.DB
}

func NewCampgroundRepository(db *sql.DB) *CampgroundRepository {
	return &CampgroundRepository{db: db}
}

// List returns one page of campgrounds in creation order. A non-empty
// pattern is matched case-insensitively against the name as a POSIX regex;
// callers are expected to escape user input. total counts every match.
func (r *CampgroundRepository) List(ctx context.Context, pattern string, offset, limit int) ([]types.Campground, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 8
	}

	const countQuery = `SELECT COUNT(1) FROM campgrounds c WHERE ($1 = '' OR c.name ~* $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT ` + campgroundColumns + `
		FROM campgrounds c
		WHERE ($1 = '' OR c.name ~* $1)
		ORDER BY c.id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, pattern, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campgrounds, err := scanCampgrounds(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return campgrounds, total, nil
}

// ListByAuthor returns every campground created by the given user.
func (r *CampgroundRepository) ListByAuthor(ctx context.Context, authorID int) ([]types.Campground, error) {
	const query = `
		SELECT ` + campgroundColumns + `
		FROM campgrounds c
		WHERE c.author_id = $1
		ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCampgrounds(rows, 0)
}

func (r *CampgroundRepository) Get(ctx context.Context, id int) (types.Campground, error) {
	const query = `
		SELECT ` + campgroundColumns + `
		FROM campgrounds c
		WHERE c.id = $1`
	campground, err := scanCampground(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Campground{}, ErrNotFound
		}
		return types.Campground{}, err
	}
	return campground, nil
}

func (r *CampgroundRepository) Create(ctx context.Context, campground types.Campground) (types.Campground, error) {
	now := time.Now()
	campground.CreatedAt = now
	campground.UpdatedAt = now
	campground.CommentIDs = []int{}

	const query = `
		INSERT INTO campgrounds (name, price, description, image, image_id, location, lat, lng,
			author_id, author_username, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		campground.Name,
		campground.Price,
		campground.Description,
		campground.Image,
		campground.ImageID,
		campground.Location,
		campground.Lat,
		campground.Lng,
		campground.Author.ID,
		campground.Author.Username,
		campground.CreatedAt,
		campground.UpdatedAt,
	).Scan(&campground.ID); err != nil {
		return types.Campground{}, mapError(err)
	}
	return campground, nil
}

// Update writes the editable fields. The author snapshot is never rewritten.
func (r *CampgroundRepository) Update(ctx context.Context, campground types.Campground) (types.Campground, error) {
	campground.UpdatedAt = time.Now()

	const query = `
		UPDATE campgrounds
		SET name = $1,
			price = $2,
			description = $3,
			image = $4,
			image_id = $5,
			location = $6,
			lat = $7,
			lng = $8,
			updated_at = $9
		WHERE id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		campground.Name,
		campground.Price,
		campground.Description,
		campground.Image,
		campground.ImageID,
		campground.Location,
		campground.Lat,
		campground.Lng,
		campground.UpdatedAt,
		campground.ID,
	)
	if err != nil {
		return types.Campground{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Campground{}, err
	}
	if affected == 0 {
		return types.Campground{}, ErrNotFound
	}
	return campground, nil
}

// Delete removes the campground and its comment references. The comments
// themselves are kept.
func (r *CampgroundRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM campgrounds WHERE id = $1`
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampground(row rowScanner) (types.Campground, error) {
	var campground types.Campground
	var commentIDs pq.Int64Array
	if err := row.Scan(
		&campground.ID,
		&campground.Name,
		&campground.Price,
		&campground.Description,
		&campground.Image,
		&campground.ImageID,
		&campground.Location,
		&campground.Lat,
		&campground.Lng,
		&campground.Author.ID,
		&campground.Author.Username,
		&campground.CreatedAt,
		&campground.UpdatedAt,
		&commentIDs,
	); err != nil {
		return types.Campground{}, err
	}
	campground.CommentIDs = make([]int, 0, len(commentIDs))
	for _, id := range commentIDs {
		campground.CommentIDs = append(campground.CommentIDs, int(id))
	}
	return campground, nil
}

func scanCampgrounds(rows *sql.Rows, capacity int) ([]types.Campground, error) {
	campgrounds := make([]types.Campground, 0, capacity)
	for rows.Next() {
		campground, err := scanCampground(rows)
		if err != nil {
			return nil, err
		}
		campgrounds = append(campgrounds, campground)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return campgrounds, nil
}
