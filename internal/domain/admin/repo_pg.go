package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/db"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps constraint failures onto domain errors.
func translate(err error, op string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "medical_staff"):
		return ErrStaffExists
	case pgErr.Code == foreignKeyViolation && strings.Contains(pgErr.ConstraintName, "level"):
		return ErrLevelNotFound
	case pgErr.Code == foreignKeyViolation && strings.Contains(pgErr.ConstraintName, "facility"):
		return ErrFacilityNotFound
	case pgErr.Code == foreignKeyViolation:
		return apperr.New(apperr.ErrNotFound, "referenced user does not exist")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// -- Facility Repository --

type facilityRepoPG struct {
	pool db.Queryable
}

func NewFacilityRepo(pool db.Queryable) FacilityRepository {
	return &facilityRepoPG{pool: pool}
}

func (r *facilityRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

const facilityCols = `id, name, type, level_id, address, phone, email, status, rating, created_at, updated_at`

func scanFacility(row pgx.Row) (*Facility, error) {
	var f Facility
	err := row.Scan(&f.ID, &f.Name, &f.Type, &f.LevelID, &f.Address, &f.Phone, &f.Email,
		&f.Status, &f.Rating, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFacilityNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *facilityRepoPG) Create(ctx context.Context, f *Facility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO facility (id, name, type, level_id, address, phone, email, status, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		f.ID, f.Name, f.Type, f.LevelID, f.Address, f.Phone, f.Email, f.Status, f.Rating,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return translate(err, "insert facility")
	}
	return nil
}

func (r *facilityRepoPG) Update(ctx context.Context, f *Facility) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE facility SET name = $2, type = $3, level_id = $4, address = $5, phone = $6,
			email = $7, status = $8, rating = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.Name, f.Type, f.LevelID, f.Address, f.Phone, f.Email, f.Status, f.Rating,
	).Scan(&f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrFacilityNotFound
	}
	if err != nil {
		return translate(err, "update facility")
	}
	return nil
}

func (r *facilityRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Facility, error) {
	return scanFacility(r.conn(ctx).QueryRow(ctx, `SELECT `+facilityCols+` FROM facility WHERE id = $1`, id))
}

func (r *facilityRepoPG) List(ctx context.Context, f FacilityFilter) ([]*Facility, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("name ILIKE $%d", "%"+s+"%")
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM facility`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count facilities: %w", err)
	}

	query := `SELECT ` + facilityCols + ` FROM facility` + clause + ` ORDER BY name`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list facilities: %w", err)
	}
	defer rows.Close()

	var out []*Facility
	for rows.Next() {
		fac, err := scanFacility(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, fac)
	}
	return out, total, rows.Err()
}

func (r *facilityRepoPG) ListLevels(ctx context.Context) ([]*FacilityLevel, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, level, description, created_at, updated_at FROM facility_level ORDER BY level`)
	if err != nil {
		return nil, fmt.Errorf("list facility levels: %w", err)
	}
	defer rows.Close()

	var out []*FacilityLevel
	for rows.Next() {
		var l FacilityLevel
		if err := rows.Scan(&l.ID, &l.Name, &l.Level, &l.Description, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// -- Staff Repository --

type staffRepoPG struct {
	pool db.Queryable
}

func NewStaffRepo(pool db.Queryable) StaffRepository {
	return &staffRepoPG{pool: pool}
}

func (r *staffRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Conn(ctx, r.pool)
}

func (r *staffRepoPG) Create(ctx context.Context, s *MedicalStaff) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_staff (id, user_id, facility_id, license_number, specialty, staff_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		s.ID, s.UserID, s.FacilityID, s.LicenseNumber, s.Specialty, s.StaffType, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return translate(err, "insert medical staff")
	}
	return nil
}

func (r *staffRepoPG) List(ctx context.Context, f StaffFilter) ([]*MedicalStaff, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.FacilityID != nil {
		add("facility_id = $%d", *f.FacilityID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <= $%d", f.To)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, facility_id, license_number, specialty, staff_type, status, created_at, updated_at
		FROM medical_staff`+clause+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list medical staff: %w", err)
	}
	defer rows.Close()

	var out []*MedicalStaff
	for rows.Next() {
		var s MedicalStaff
		if err := rows.Scan(&s.ID, &s.UserID, &s.FacilityID, &s.LicenseNumber, &s.Specialty,
			&s.StaffType, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
