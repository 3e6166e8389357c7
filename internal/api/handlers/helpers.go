package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/maheshrc27/crosspost/internal/platform"
)

func GetUserID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(id, 10, 64)
	return userID
}

// platformParam reads the :platform route parameter. ok is false once the
// 400 response has been written.
func platformParam(c *fiber.Ctx) (platform.Platform, bool, error) {
	p, err := platform.Parse(c.Params("platform"))
	if err != nil {
		return "", false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unsupported platform",
		})
	}
	return p, true, nil
}
