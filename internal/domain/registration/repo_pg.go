package registration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/afyalink/referral/internal/platform/db"
)

type repoPG struct {
	pool db.Queryable
}

func NewRepo(pool db.Queryable) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const codeCols = `id, code, role, max_uses, uses_count, expires_at, is_active, created_by, created_at`

func scanCode(row pgx.Row) (*Code, error) {
	var c Code
	err := row.Scan(&c.ID, &c.Code, &c.Role, &c.MaxUses, &c.UsesCount, &c.ExpiresAt, &c.IsActive, &c.CreatedBy, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Code) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO registration_code (id, code, role, max_uses, expires_at, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING uses_count, created_at`,
		c.ID, c.Code, c.Role, c.MaxUses, c.ExpiresAt, c.IsActive, c.CreatedBy,
	).Scan(&c.UsesCount, &c.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrCodeExists
	}
	if err != nil {
		return fmt.Errorf("insert registration code: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Code, error) {
	return scanCode(r.conn(ctx).QueryRow(ctx, `SELECT `+codeCols+` FROM registration_code WHERE id = $1`, id))
}

func (r *repoPG) GetByCode(ctx context.Context, code string) (*Code, error) {
	return scanCode(r.conn(ctx).QueryRow(ctx, `SELECT `+codeCols+` FROM registration_code WHERE code = $1`, code))
}

func (r *repoPG) Consume(ctx context.Context, code string, now time.Time) (*Code, error) {
	c, err := scanCode(r.conn(ctx).QueryRow(ctx, `
		UPDATE registration_code SET uses_count = uses_count + 1
		WHERE code = $1
		  AND is_active
		  AND (expires_at IS NULL OR expires_at > $2)
		  AND (max_uses IS NULL OR uses_count < max_uses)
		RETURNING `+codeCols, code, now))
	if !errors.Is(err, ErrCodeNotFound) {
		return c, err
	}

	// Nothing matched: report why.
	cur, err := r.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := cur.Usable(now); err != nil {
		return nil, err
	}
	return nil, ErrCodeExhausted
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) (*Code, error) {
	return scanCode(r.conn(ctx).QueryRow(ctx,
		`UPDATE registration_code SET is_active = false WHERE id = $1 RETURNING `+codeCols, id))
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Code, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM registration_code`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registration codes: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+codeCols+` FROM registration_code ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list registration codes: %w", err)
	}
	defer rows.Close()

	var out []*Code
	for rows.Next() {
		c, err := scanCode(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}
