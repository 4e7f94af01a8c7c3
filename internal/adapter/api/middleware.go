package api

import (
	"github.com/burenotti/go_bmi_backend/internal/app/authapp"
	"github.com/labstack/echo/v4"
	"net/http"
	"strings"
)

const KeyCurrentUser = "current_user"

func LoginRequired(authorizer *authapp.Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, authapp.TokenType) || token == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return JsonError(c, http.StatusUnauthorized, "Not authenticated")
			}

			data, err := authorizer.ValidateAccessToken(token)
			if err != nil {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return JsonError(c, http.StatusUnauthorized, err.Error())
			}

			c.Set(KeyCurrentUser, data)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) *authapp.AccessTokenData {
	return c.Get(KeyCurrentUser).(*authapp.AccessTokenData)
}
