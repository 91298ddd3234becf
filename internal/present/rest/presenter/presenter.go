package presenter

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Error string `json:"error"`
}

// OK wraps a successful response.
func OK(c echo.Context, payload any) error {
	return c.JSON(http.StatusOK, payload)
}

// Accepted acknowledges queued work.
func Accepted(c echo.Context) error {
	return c.JSON(http.StatusAccepted, echo.Map{"status": "accepted"})
}

func BadRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

func BadRequestMessage(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

func Unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, errorResponse{Error: msg})
}

func Forbidden(c echo.Context) error {
	return c.JSON(http.StatusForbidden, errorResponse{Error: "forbidden"})
}

func NotFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Error: msg})
}

func InternalError(c echo.Context, err error) error {
	return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

// ActivityJSON writes an ActivityPub document with the proper media type.
func ActivityJSON(c echo.Context, payload any) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/activity+json; charset=utf-8")
	res.WriteHeader(http.StatusOK)
	return c.Echo().JSONSerializer.Serialize(c, payload, "")
}
