package api

import (
	"errors"
	"fmt"
	"github.com/labstack/echo/v4"
	"net/http"
)

type JsonErrorModel struct {
	Detail string `json:"detail"`
}

func JsonError(c echo.Context, status int, content any) error {
	data := &JsonErrorModel{Detail: fmt.Sprintf("%v", content)}
	return c.JSON(status, data)
}

// bindError renders an error returned by Server.bind.
func bindError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return JsonError(c, he.Code, he.Message)
	}
	return JsonError(c, http.StatusBadRequest, "bad request")
}

func (s *Server) internalError(c echo.Context, err error) error {
	s.logger.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return JsonError(c, http.StatusInternalServerError, "internal server error")
}

// handleError replaces the default echo error handler so that routing
// failures and recovered panics use the same body as handlers.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		_ = s.internalError(c, err)
		return
	}
	if he.Internal != nil {
		s.logger.Debug("http error", "code", he.Code, "error", he.Internal)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = JsonError(c, he.Code, he.Message)
}
