package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/afyalink/referral/internal/domain/access"
	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/db"
	"github.com/afyalink/referral/internal/platform/ids"
	"github.com/afyalink/referral/internal/platform/metrics"
	"github.com/afyalink/referral/internal/platform/telemetry"
)

// generatedSuffixLen is the length of the random tail on generated codes.
const generatedSuffixLen = 8

type Service struct {
	codes    Repository
	profiles identity.ProfileRepository
	roles    identity.RoleRepository
	tx       db.Transactor
	metrics  *metrics.Collector
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(codes Repository, profiles identity.ProfileRepository, roles identity.RoleRepository,
	tx db.Transactor, m *metrics.Collector, log zerolog.Logger) *Service {
	return &Service{
		codes:    codes,
		profiles: profiles,
		roles:    roles,
		tx:       tx,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// GenerateCode returns a fresh code for role, e.g. DOCTOR-01HZX3K7.
func GenerateCode(role identity.Role) string {
	return strings.ToUpper(string(role)) + "-" + ids.Short(generatedSuffixLen)
}

func (s *Service) Create(ctx context.Context, caller access.Caller, req CreateRequest) (_ *Code, err error) {
	ctx, span := telemetry.StartSpan(ctx, "registration.Create")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := caller.Require(access.CodeCreate); err != nil {
		return nil, err
	}

	req.Code = strings.TrimSpace(req.Code)
	ve := &apperr.ValidationError{}
	if !req.Role.Valid() {
		ve.Add("role", "a valid role is required")
	}
	if req.MaxUses != nil && *req.MaxUses < 1 {
		ve.Add("max_uses", "max_uses must be at least 1")
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		ve.Add("expires_at", "expires_at must be in the future")
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	if req.Code == "" {
		req.Code = GenerateCode(req.Role)
	}

	c := &Code{
		Code:      req.Code,
		Role:      req.Role,
		MaxUses:   req.MaxUses,
		ExpiresAt: req.ExpiresAt,
		IsActive:  true,
	}
	if !caller.Operator {
		createdBy := caller.UserID
		c.CreatedBy = &createdBy
	}
	if err := s.codes.Create(ctx, c); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("code_id", c.ID.String()).
		Str("role", string(c.Role)).
		Str("admin_id", caller.UserID.String()).
		Msg("registration code created")
	return c, nil
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, ErrCodeInactive):
		return "inactive"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrCodeExhausted):
		return "exhausted"
	case errors.Is(err, identity.ErrRoleExists):
		return "role_exists"
	default:
		return "error"
	}
}

// Redeem consumes one use of code and grants its role to userID. The profile
// status is left alone; activation is a separate admin step.
func (s *Service) Redeem(ctx context.Context, code string, userID uuid.UUID) (role identity.Role, err error) {
	ctx, span := telemetry.StartSpan(ctx, "registration.Redeem", attribute.String("user.id", userID.String()))
	defer func() {
		s.metrics.CodeRedemption(redemptionResult(err))
		telemetry.EndSpan(span, err)
	}()

	code = strings.TrimSpace(code)
	if code == "" {
		return "", apperr.Validation("registration_code", "registration_code is required")
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		c, err := s.codes.Consume(ctx, code, s.now())
		if err != nil {
			return err
		}
		if _, err := s.roles.Assign(ctx, userID, c.Role); err != nil {
			return err
		}
		role = c.Role
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("role", string(role)).
		Msg("registration code redeemed")
	return role, nil
}

// RedeemExisting redeems code for a user who signed up without one. The
// profile must exist; its status does not matter.
func (s *Service) RedeemExisting(ctx context.Context, userID uuid.UUID, code string) (*identity.Account, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, identity.ErrProfileNotFound) {
		return nil, apperr.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.Redeem(ctx, code, userID); err != nil {
		return nil, err
	}
	roles, err := s.roles.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &identity.Account{Profile: *p, Roles: roles}, nil
}

func (s *Service) Deactivate(ctx context.Context, caller access.Caller, id uuid.UUID) (*Code, error) {
	if err := caller.Require(access.CodeDeactivate); err != nil {
		return nil, err
	}
	c, err := s.codes.Deactivate(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("code_id", id.String()).Msg("registration code deactivated")
	return c, nil
}

func (s *Service) List(ctx context.Context, caller access.Caller, limit, offset int) ([]*Code, int, error) {
	if err := caller.Require(access.CodeList); err != nil {
		return nil, 0, err
	}
	return s.codes.List(ctx, limit, offset)
}

// Count returns the number of codes ever issued.
func (s *Service) Count(ctx context.Context) (int, error) {
	_, total, err := s.codes.List(ctx, 1, 0)
	return total, err
}

// ActivateUser approves a pending account. A user with no role must be given
// one; a user who already holds a role keeps it and role is ignored.
func (s *Service) ActivateUser(ctx context.Context, caller access.Caller, userID uuid.UUID, role identity.Role) (acct *identity.Account, err error) {
	ctx, span := telemetry.StartSpan(ctx, "registration.ActivateUser", attribute.String("user.id", userID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	if err := caller.Require(access.UserActivate); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, apperr.Validation("role", "unknown role "+string(role))
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.profiles.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if p.Status != identity.StatusPending {
			return ErrNotPending
		}

		roles, err := s.roles.ListForUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			if role == "" {
				return errRoleRequired()
			}
			if _, err := s.roles.Assign(ctx, userID, role); err != nil {
				return err
			}
			roles = []identity.Role{role}
		}

		ok, err := s.profiles.ActivateIfPending(ctx, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotPending
		}
		p.Status = identity.StatusActive
		acct = &identity.Account{Profile: *p, Roles: roles}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Activation()
	s.log.Info().
		Str("user_id", userID.String()).
		Str("admin_id", caller.UserID.String()).
		Strs("roles", identity.RoleStrings(acct.Roles)).
		Msg("user activated")
	return acct, nil
}

// ListPending returns the activation queue, oldest first.
func (s *Service) ListPending(ctx context.Context, caller access.Caller) ([]PendingUser, error) {
	if err := caller.Require(access.UserListPending); err != nil {
		return nil, err
	}
	profiles, _, err := s.profiles.List(ctx, identity.ListFilter{Status: identity.StatusPending})
	if err != nil {
		return nil, err
	}
	userIDs := make([]uuid.UUID, len(profiles))
	for i, p := range profiles {
		userIDs[i] = p.ID
	}
	roles, err := s.roles.ListForUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]PendingUser, 0, len(profiles))
	for i := len(profiles) - 1; i >= 0; i-- {
		p := profiles[i]
		out = append(out, PendingUser{
			Account:   identity.Account{Profile: *p, Roles: roles[p.ID]},
			NeedsRole: len(roles[p.ID]) == 0,
		})
	}
	return out, nil
}
