package handlers

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/cache"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/pkg/utils"
)

type PlatformHandler struct {
	oauth    service.OAuthService
	tokens   service.TokenService
	attempts cache.AttemptStore
	cfg      config.Config
}

func NewPlatformHandler(oauth service.OAuthService, tokens service.TokenService, attempts cache.AttemptStore, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		oauth:    oauth,
		tokens:   tokens,
		attempts: attempts,
		cfg:      cfg,
	}
}

// AddSocialAccount starts a connect flow. The browser arrives here from the
// frontend, so the session token travels in the query string.
func (h *PlatformHandler) AddSocialAccount(c *fiber.Ctx) error {
	claims, err := utils.ValidateToken(h.cfg.SecretKey, c.Query("token"))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unable to validate user",
		})
	}

	p, ok, err := platformParam(c)
	if !ok {
		return err
	}

	attempt, err := h.oauth.Begin(c.Context(), userID, p)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to start authorization",
		})
	}

	if err := h.attempts.Save(c.Context(), attempt); err != nil {
		slog.Warn("failed to save oauth attempt", "user_id", userID, "platform", p, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to start authorization",
		})
	}

	return c.Redirect(attempt.AuthURL)
}

// CallbackHandler serves the fixed redirect URI shared by every platform.
func (h *PlatformHandler) CallbackHandler(c *fiber.Ctx) error {
	attempt, err := h.attempts.Take(c.Context(), c.Query("state"))
	if err != nil {
		slog.Info(err.Error())
	}
	if attempt == nil {
		return c.Redirect(h.accountsURL("", &service.ConnectResult{Error: service.MsgStateMismatch}), fiber.StatusTemporaryRedirect)
	}

	callbackURL := h.cfg.OAuthRedirectURI + "?" + string(c.Request().URI().QueryString())
	result := h.oauth.Complete(c.Context(), attempt, callbackURL)
	if !result.Success {
		slog.Info("connect failed", "user_id", attempt.UserID, "platform", attempt.Platform, "error", result.Error, "failed_at", result.FailedAt)
	}

	return c.Redirect(h.accountsURL(attempt.Platform, result), fiber.StatusTemporaryRedirect)
}

func (h *PlatformHandler) accountsURL(platform string, result *service.ConnectResult) string {
	params := url.Values{}
	if platform != "" {
		params.Set("platform", platform)
	}
	if result.Success {
		params.Set("status", "connected")
	} else {
		params.Set("status", "failed")
		params.Set("error", result.Error)
	}
	return fmt.Sprintf("%s/accounts?%s", h.cfg.FrontendURL, params.Encode())
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	userID := GetUserID(c)

	accountList, err := h.oauth.Accounts(c.Context(), userID)
	if err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch social accounts",
		})
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) AccountStatus(c *fiber.Ctx) error {
	userID := GetUserID(c)
	p, ok, err := platformParam(c)
	if !ok {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"platform":  p,
		"connected": h.tokens.IsConnected(c.Context(), userID, p),
	})
}

func (h *PlatformHandler) DeleteSocialAccount(c *fiber.Ctx) error {
	userID := GetUserID(c)
	p, ok, err := platformParam(c)
	if !ok {
		return err
	}

	result := h.oauth.Disconnect(c.Context(), userID, p)
	if !result.Success {
		return c.Status(fiber.StatusInternalServerError).JSON(result)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
