package handlers

import (
	"github.com/gofiber/fiber/v2"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/service"
)

type AuthHandler struct {
	oauth service.OAuthService
	cfg   config.Config
}

func NewAuthHandler(cfg config.Config, oauth service.OAuthService) *AuthHandler {
	return &AuthHandler{oauth: oauth, cfg: cfg}
}

// Logout wipes every stored token and account of the user and drops the
// session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID := GetUserID(c)

	if err := h.oauth.ClearAll(c.Context(), userID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to clear secure data",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:   h.cfg.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	return c.SendStatus(fiber.StatusOK)
}
