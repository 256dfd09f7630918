package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/middleware"
	"github.com/iliyamo/movie-ticket-booking/internal/utils"
)

// getUserID returns the user id set by the JWT middleware.
func getUserID(c echo.Context) (uint64, bool) {
	id, ok := middleware.UserID(c)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "code": "unauthorized"})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// bindAndValidate binds the body into req and runs the validator tags.
// On failure it writes the 400 response and returns false.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return false, validationFailed(c, errs)
	}
	return true, nil
}

func validationFailed(c echo.Context, errs map[string]string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{
		"error":  utils.FormatValidationErrors(errs),
		"code":   "invalid_input",
		"fields": errs,
	})
}
