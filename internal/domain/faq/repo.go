package faq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/afyalink/referral/internal/platform/db"
)

type Repository interface {
	Create(ctx context.Context, f *FAQ) error
	Update(ctx context.Context, f *FAQ) error
	GetByID(ctx context.Context, id uuid.UUID) (*FAQ, error)
	List(ctx context.Context, f Filter) ([]*FAQ, error)
	Categories(ctx context.Context) ([]string, error)
}

type repoPG struct {
	pool db.Queryable
}

func NewRepo(pool db.Queryable) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const cols = `id, question, answer, category, is_published, order_index, created_at, updated_at`

func scan(row pgx.Row) (*FAQ, error) {
	var f FAQ
	err := row.Scan(&f.ID, &f.Question, &f.Answer, &f.Category, &f.IsPublished, &f.OrderIndex, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repoPG) Create(ctx context.Context, f *FAQ) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO faq (id, question, answer, category, is_published, order_index)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		f.ID, f.Question, f.Answer, f.Category, f.IsPublished, f.OrderIndex,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert faq: %w", err)
	}
	return nil
}

func (r *repoPG) Update(ctx context.Context, f *FAQ) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE faq SET question = $2, answer = $3, category = $4, is_published = $5,
			order_index = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.Question, f.Answer, f.Category, f.IsPublished, f.OrderIndex,
	).Scan(&f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update faq: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*FAQ, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM faq WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*FAQ, error) {
	var (
		where []string
		args  []any
	)
	if !f.IncludeUnpublished {
		where = append(where, "is_published")
	}
	if c := f.categoryFilter(); c != "" {
		args = append(args, c)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(question ILIKE $%d OR answer ILIKE $%d)", len(args), len(args)))
	}
	query := `SELECT ` + cols + ` FROM faq`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY order_index, created_at"

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list faq: %w", err)
	}
	defer rows.Close()

	var out []*FAQ
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repoPG) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT DISTINCT category FROM faq WHERE is_published AND category IS NOT NULL ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("faq categories: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
