package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/proxy"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// ProxyHandler exposes an in-process TokenProxy to remote HTTPProxy clients.
type ProxyHandler struct {
	tp proxy.TokenProxy
}

func NewProxyHandler(tp proxy.TokenProxy) *ProxyHandler {
	return &ProxyHandler{tp: tp}
}

func proxyError(c *fiber.Ctx, err error) error {
	slog.Info(err.Error())
	status := fiber.StatusBadGateway
	if errors.Is(err, proxy.ErrRefreshUnsupported) ||
		errors.Is(err, proxy.ErrMissingCredentials) ||
		errors.Is(err, platform.ErrUnknownPlatform) {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(transfer.ErrorResponse{Error: err.Error()})
}

func badProxyRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(transfer.ErrorResponse{Error: "invalid request"})
}

func (h *ProxyHandler) Exchange(c *fiber.Ctx) error {
	var req transfer.ExchangeRequest
	if err := c.BodyParser(&req); err != nil || req.Platform == "" || req.Code == "" {
		return badProxyRequest(c)
	}

	token, err := h.tp.Exchange(c.Context(), req)
	if err != nil {
		return proxyError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(token)
}

func (h *ProxyHandler) Refresh(c *fiber.Ctx) error {
	var req transfer.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.Platform == "" || req.RefreshToken == "" {
		return badProxyRequest(c)
	}

	token, err := h.tp.Refresh(c.Context(), req)
	if err != nil {
		return proxyError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(token)
}

func (h *ProxyHandler) Revoke(c *fiber.Ctx) error {
	var req transfer.RevokeRequest
	if err := c.BodyParser(&req); err != nil || req.Platform == "" || req.AccessToken == "" {
		return badProxyRequest(c)
	}

	if err := h.tp.Revoke(c.Context(), req); err != nil {
		return proxyError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
