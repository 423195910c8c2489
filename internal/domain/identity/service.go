package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/auth"
	"github.com/afyalink/referral/internal/platform/db"
)

// CodeRedeemer redeems a registration code for a freshly created profile.
// It is satisfied by the registration service.
type CodeRedeemer interface {
	Redeem(ctx context.Context, code string, userID uuid.UUID) (Role, error)
}

// TokenIssuer signs session tokens. Nil disables built-in login.
type TokenIssuer interface {
	Issue(userID, email string) (*auth.Token, error)
}

type Service struct {
	profiles ProfileRepository
	roles    RoleRepository
	tx       db.Transactor
	tokens   TokenIssuer
	redeemer CodeRedeemer
	log      zerolog.Logger
}

func NewService(profiles ProfileRepository, roles RoleRepository, tx db.Transactor, tokens TokenIssuer, log zerolog.Logger) *Service {
	return &Service{profiles: profiles, roles: roles, tx: tx, tokens: tokens, log: log}
}

// SetCodeRedeemer wires the registration service after construction; the two
// services reference each other.
func (s *Service) SetCodeRedeemer(r CodeRedeemer) {
	s.redeemer = r
}

// Signup creates a pending profile. When a registration code is supplied it
// is redeemed in the same transaction, so a bad code leaves no account
// behind. The profile stays pending either way; activation is an
// administrator decision.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Account, error) {
	req.Email = NormalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	req.RegistrationCode = strings.TrimSpace(req.RegistrationCode)

	ve := &apperr.ValidationError{}
	if !ValidEmail(req.Email) {
		ve.Add("email", "a valid email is required")
	}
	if req.FullName == "" {
		ve.Add("full_name", "full_name is required")
	}
	if len(req.Password) < auth.MinPasswordLength {
		ve.Add("password", auth.ErrPasswordTooShort.Error())
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}
	if req.RegistrationCode != "" && s.redeemer == nil {
		return nil, errors.New("registration codes are not configured")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &Account{Profile: Profile{
		Email:        req.Email,
		FullName:     req.FullName,
		Phone:        req.Phone,
		Status:       StatusPending,
		PasswordHash: hash,
	}}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.profiles.Create(ctx, &acct.Profile); err != nil {
			return err
		}
		if req.RegistrationCode == "" {
			return nil
		}
		role, err := s.redeemer.Redeem(ctx, req.RegistrationCode, acct.ID)
		if err != nil {
			return err
		}
		acct.Roles = []Role{role}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", acct.ID.String()).
		Bool("with_code", req.RegistrationCode != "").
		Msg("profile created")
	return acct, nil
}

// Login verifies credentials and issues a session token. Pending profiles can
// log in; the access gate then reports them as awaiting approval.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*auth.Token, *Profile, error) {
	if s.tokens == nil {
		return nil, nil, ErrLoginDisabled
	}
	p, err := s.profiles.GetByEmail(ctx, req.Email)
	if errors.Is(err, ErrProfileNotFound) {
		auth.BurnPasswordCheck(req.Password)
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}
	if err := auth.VerifyPassword(p.PasswordHash, req.Password); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(p.ID.String(), p.Email)
	if err != nil {
		return nil, nil, err
	}
	return tok, p, nil
}

// GetAccount loads a profile with its roles.
func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*Account, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.ListForUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Account{Profile: *p, Roles: roles}, nil
}

// ListAccounts lists profiles matching f with their roles attached.
func (s *Service) ListAccounts(ctx context.Context, f ListFilter) ([]*Account, int, error) {
	profiles, total, err := s.profiles.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	ids := make([]uuid.UUID, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}
	roles, err := s.roles.ListForUsers(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*Account, len(profiles))
	for i, p := range profiles {
		out[i] = &Account{Profile: *p, Roles: roles[p.ID]}
	}
	return out, total, nil
}
