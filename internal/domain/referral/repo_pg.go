package referral

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

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

const referralCols = `id, patient_id, referring_doctor_id, assigned_doctor_id, assigned_nurse_id,
	facility_from, facility_to, reason, diagnosis, notes, urgency, status, created_at, updated_at`

func scanReferral(row pgx.Row) (*Referral, error) {
	var ref Referral
	err := row.Scan(&ref.ID, &ref.PatientID, &ref.ReferringDoctorID, &ref.AssignedDoctorID, &ref.AssignedNurseID,
		&ref.FacilityFrom, &ref.FacilityTo, &ref.Reason, &ref.Diagnosis, &ref.Notes,
		&ref.Urgency, &ref.Status, &ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *repoPG) Create(ctx context.Context, ref *Referral) error {
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO referral (id, patient_id, referring_doctor_id, facility_from, facility_to,
			reason, diagnosis, notes, urgency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		ref.ID, ref.PatientID, ref.ReferringDoctorID, ref.FacilityFrom, ref.FacilityTo,
		ref.Reason, ref.Diagnosis, ref.Notes, ref.Urgency, ref.Status,
	).Scan(&ref.CreatedAt, &ref.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Referral, error) {
	ref, err := scanReferral(r.conn(ctx).QueryRow(ctx,
		`SELECT `+referralCols+` FROM referral WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return ref, err
}

// conditional runs a guarded UPDATE ... RETURNING. When the guard matches no
// row it tells a missing referral apart from a lost race.
func (r *repoPG) conditional(ctx context.Context, id uuid.UUID, lost error, sql string, args ...any) (*Referral, error) {
	ref, err := scanReferral(r.conn(ctx).QueryRow(ctx, sql, args...))
	if err == nil {
		return ref, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update referral: %w", err)
	}
	var exists bool
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM referral WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check referral: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, lost
}

func (r *repoPG) ClaimNurse(ctx context.Context, id, nurseID uuid.UUID) (*Referral, error) {
	return r.conditional(ctx, id, ErrAlreadyAssigned, `
		UPDATE referral SET assigned_nurse_id = $2, updated_at = now()
		WHERE id = $1 AND assigned_nurse_id IS NULL
		RETURNING `+referralCols, id, nurseID)
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Referral, error) {
	return r.conditional(ctx, id, ErrConcurrentUpdate, `
		UPDATE referral SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+referralCols, id, from, to)
}

func (r *repoPG) Touch(ctx context.Context, id uuid.UUID) (*Referral, error) {
	return r.conditional(ctx, id, ErrNotFound, `
		UPDATE referral SET updated_at = now() WHERE id = $1
		RETURNING `+referralCols, id)
}

func (r *repoPG) AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) (*Referral, error) {
	return r.conditional(ctx, id, ErrNotFound, `
		UPDATE referral SET assigned_doctor_id = $2, updated_at = now() WHERE id = $1
		RETURNING `+referralCols, id, doctorID)
}

// whereClause renders the scope and filters. Scope conditions are OR-ed,
// the remaining filters AND-ed onto them.
func whereClause(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !f.Scope.All {
		var or []string
		if f.Scope.PatientID != nil {
			or = append(or, "patient_id = "+arg(*f.Scope.PatientID))
		}
		if f.Scope.DoctorID != nil {
			p := arg(*f.Scope.DoctorID)
			or = append(or, "referring_doctor_id = "+p, "assigned_doctor_id = "+p)
		}
		if f.Scope.NurseID != nil {
			// Nurses also see the unclaimed queue.
			or = append(or, "assigned_nurse_id = "+arg(*f.Scope.NurseID), "assigned_nurse_id IS NULL")
		}
		if len(or) == 0 {
			return " WHERE false", nil
		}
		where = append(where, "("+strings.Join(or, " OR ")+")")
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(f.Status))
	}
	if f.Urgency != "" {
		where = append(where, "urgency = "+arg(f.Urgency))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := arg("%" + s + "%")
		where = append(where, "(reason ILIKE "+p+" OR diagnosis ILIKE "+p+" OR facility_from ILIKE "+p+" OR facility_to ILIKE "+p+")")
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at <= "+arg(f.To))
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Referral, int, error) {
	clause, args := whereClause(f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM referral`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count referrals: %w", err)
	}

	query := `SELECT ` + referralCols + ` FROM referral` + clause + ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	var out []*Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ref)
	}
	return out, total, rows.Err()
}

func (r *repoPG) Count(ctx context.Context, f Filter) (int, error) {
	clause, args := whereClause(f)
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM referral`+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count referrals: %w", err)
	}
	return n, nil
}

func (r *repoPG) CountByStatus(ctx context.Context, scope Scope) (map[Status]int, error) {
	clause, args := whereClause(Filter{Scope: scope})
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM referral`+clause+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("count referrals by status: %w", err)
	}
	defer rows.Close()

	out := make(map[Status]int)
	for rows.Next() {
		var s Status
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[s] = n
	}
	return out, rows.Err()
}
