package access

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/afyalink/referral/internal/domain/identity"
	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/auth"
)

// SessionFromContext turns the subject recorded by the token middleware into
// a Session. A subject that is not a UUID is treated as no session.
func SessionFromContext(c echo.Context) *Session {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return nil
	}
	return &Session{UserID: uid}
}

// Middleware resolves every request through the gate. Only Authorized
// callers reach the handler, with their roles on the request context.
func (g *Gate) Middleware(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			d, err := g.Resolve(ctx, SessionFromContext(c))
			if err != nil {
				log.Error().Err(err).Msg("access gate lookup failed")
				return apperr.HTTP(err)
			}

			switch d.Kind {
			case Unauthenticated:
				return apperr.HTTP(apperr.ErrUnauthenticated)
			case PendingApproval:
				return apperr.HTTP(apperr.New(apperr.ErrPendingApproval, d.Email))
			}

			ctx = auth.WithRoles(ctx, identity.RoleStrings(d.Roles))
			ctx = WithCaller(ctx, Caller{UserID: d.UserID, Roles: d.Roles})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// Require is route middleware allowing only callers permitted to attempt
// action.
func Require(action Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, err := MustCaller(c.Request().Context())
			if err != nil {
				return apperr.HTTP(err)
			}
			if err := caller.Require(action); err != nil {
				return apperr.HTTP(err)
			}
			return next(c)
		}
	}
}
