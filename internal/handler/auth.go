package handler

import (
	"context"  // provides context with cancellation for DB calls
	"errors"   // errors matches repository sentinels
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // token expiry in responses

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing
	"go.uber.org/zap"             // structured logging

	"github.com/iliyamo/points-ledger/internal/config"     // app configuration
	"github.com/iliyamo/points-ledger/internal/model"      // roles
	"github.com/iliyamo/points-ledger/internal/repository" // account directory
	"github.com/iliyamo/points-ledger/internal/utils"      // hashing, token issuing and id generation
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *repository.AccountRepo
	Log      *zap.Logger
}

func NewAuthHandler(cfg config.Config, a *repository.AccountRepo, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: a, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type accountPart struct {
	PublicID string `json:"public_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}
type authResp struct {
	Account accountPart `json:"account"`
	Access  tokenPart   `json:"access"`
}

// Register: create a MEMBER account and return an access token immediately.
// Admins are promoted with the operator CLI.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return validationError(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		h.Log.Error("hash password failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	idLen := h.Cfg.Points.PublicIDLength
	acc, err := h.Accounts.Create(ctx, req.Email, hash, model.RoleMember, func() (string, error) {
		return utils.NewPublicID(idLen)
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email_exists", "message": "email already registered"})
		}
		h.Log.Error("create account failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, acc.ID, acc.PublicID, acc.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.Error("issue access token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	h.Log.Info("account registered", zap.String("public_id", acc.PublicID))

	return c.JSON(http.StatusCreated, authResp{
		Account: accountPart{PublicID: acc.PublicID, Email: acc.Email, Role: acc.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Login: verify credentials and return a fresh access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return validationError(c, err)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := c.Validate(&req); err != nil {
		return validationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	acc, err := h.Accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		h.Log.Error("load account failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}
	if !utils.VerifyPassword(acc.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, acc.ID, acc.PublicID, acc.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.Error("issue access token failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal"})
	}

	return c.JSON(http.StatusOK, authResp{
		Account: accountPart{PublicID: acc.PublicID, Email: acc.Email, Role: acc.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
