package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/afyalink/referral/internal/platform/apperr"
	"github.com/afyalink/referral/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the session endpoints. They sit outside the access
// gate: a caller signing up has no profile yet.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
}

// RegisterSessionRoutes mounts endpoints that need a session but not an
// active account, so a pending user can see what they hold.
func (h *Handler) RegisterSessionRoutes(api *echo.Group) {
	api.GET("/account", h.Account)
}

func (h *Handler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.svc.Signup(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, acct)
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresAt   string   `json:"expires_at"`
	Profile     *Profile `json:"profile"`
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tok, p, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tok.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
		Profile:     p,
	})
}

// Logout is acknowledged only. Tokens are stateless; the client discards
// its copy.
func (h *Handler) Logout(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Account returns the caller's own profile and roles.
func (h *Handler) Account(c echo.Context) error {
	uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return apperr.HTTP(apperr.ErrUnauthenticated)
	}
	acct, err := h.svc.GetAccount(c.Request().Context(), uid)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, acct)
}
