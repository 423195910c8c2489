// Package feedback collects user feedback and lets administrators triage it.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/db"
)

type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryBug       Category = "bug"
	CategoryFeature   Category = "feature"
	CategoryComplaint Category = "complaint"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryBug, CategoryFeature, CategoryComplaint:
		return true
	}
	return false
}

type Status string

const (
	StatusOpen     Status = "open"
	StatusReviewed Status = "reviewed"
	StatusResolved Status = "resolved"
)

func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusReviewed || s == StatusResolved
}

type Feedback struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Subject   string    `db:"subject" json:"subject"`
	Message   string    `db:"message" json:"message"`
	Category  Category  `db:"category" json:"category"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type SubmitRequest struct {
	Subject  string   `json:"subject"`
	Message  string   `json:"message"`
	Category Category `json:"category"`
}

type Filter struct {
	Status   Status
	Category Category
	Limit    int
	Offset   int
}

var ErrNotFound = apperr.New(apperr.ErrNotFound, "feedback not found")

type Repository interface {
	Create(ctx context.Context, f *Feedback) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Feedback, error)
	List(ctx context.Context, f Filter) ([]*Feedback, int, error)
}

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Submit records feedback from any signed-in user.
func (s *Service) Submit(ctx context.Context, caller access.Caller, req SubmitRequest) (*Feedback, error) {
	if caller.UserID == uuid.Nil {
		return nil, apperr.ErrUnauthenticated
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	if req.Category == "" {
		req.Category = CategoryGeneral
	}

	ve := &apperr.ValidationError{}
	if req.Subject == "" {
		ve.Add("subject", "subject is required")
	}
	if req.Message == "" {
		ve.Add("message", "message is required")
	}
	if !req.Category.Valid() {
		ve.Add("category", "category must be general, bug, feature or complaint")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	fb := &Feedback{
		UserID:   caller.UserID,
		Subject:  req.Subject,
		Message:  req.Message,
		Category: req.Category,
		Status:   StatusOpen,
	}
	if err := s.repo.Create(ctx, fb); err != nil {
		return nil, err
	}
	s.log.Info().Str("feedback_id", fb.ID.String()).Str("category", string(fb.Category)).Msg("feedback submitted")
	return fb, nil
}

func (s *Service) List(ctx context.Context, caller access.Caller, f Filter) ([]*Feedback, int, error) {
	if err := caller.Require(access.FeedbackReview); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, f)
}

func (s *Service) SetStatus(ctx context.Context, caller access.Caller, id uuid.UUID, status Status) (*Feedback, error) {
	if err := caller.Require(access.FeedbackReview); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation("status", "status must be open, reviewed or resolved")
	}
	return s.repo.SetStatus(ctx, id, status)
}

// -- Postgres --

type repoPG struct {
	pool db.Queryable
}

func NewRepo(pool db.Queryable) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const cols = `id, user_id, subject, message, category, status, created_at, updated_at`

func scan(row pgx.Row) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.UserID, &f.Subject, &f.Message, &f.Category, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *repoPG) Create(ctx context.Context, f *Feedback) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO feedback (id, user_id, subject, message, category, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		f.ID, f.UserID, f.Subject, f.Message, f.Category, f.Status,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) (*Feedback, error) {
	return scan(r.conn(ctx).QueryRow(ctx,
		`UPDATE feedback SET status = $2, updated_at = now() WHERE id = $1 RETURNING `+cols, id, status))
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Feedback, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM feedback`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}
	query := `SELECT ` + cols + ` FROM feedback` + clause + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []*Feedback
	for rows.Next() {
		fb, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, fb)
	}
	return out, total, rows.Err()
}
