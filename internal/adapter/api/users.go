package api

import (
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/app/authapp"
	userservice "github.com/burenotti/go_bmi_backend/internal/app/user"
	"github.com/burenotti/go_bmi_backend/internal/domain/user"
	"github.com/labstack/echo/v4"
	"github.com/mileusna/useragent"
	"github.com/samber/lo"
	"net/http"
	"time"
)

const (
	defaultUsersLimit = 100
	maxUsersLimit     = 1000
)

func (s *Server) MountUsers(root *echo.Group) {
	loginRequired := LoginRequired(s.authorizer)

	authRoutes := root.Group("/auth")
	authRoutes.POST("/login", s.Login)

	userRoutes := root.Group("/users")
	userRoutes.POST("", s.SignUp)
	userRoutes.GET("", s.ListUsers, loginRequired)
	userRoutes.GET("/me", s.GetMe, loginRequired)
	userRoutes.PATCH("/me", s.UpdateMe, loginRequired)
	userRoutes.DELETE("/me", s.DeleteMe, loginRequired)
}

type User struct {
	UserID    int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUser(u *user.User, _ int) User {
	return User{
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type loginReq struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type loginResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) Login(c echo.Context) error {
	var b loginReq
	if err := s.bind(c, &b); err != nil {
		return bindError(c, err)
	}

	agent := useragent.Parse(c.Request().UserAgent())
	device := user.Device{
		Browser:   agent.Name,
		OS:        agent.OS,
		IPAddress: c.RealIP(),
		Model:     agent.Device,
	}

	token, err := s.userService.Login(c.Request().Context(), s.usersUoW(), device, b.Username, b.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
			return JsonError(c, http.StatusUnauthorized, "Incorrect username or password")
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, &loginResp{
		AccessToken: token,
		TokenType:   authapp.TokenType,
	})
}

type signUpReq struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (s *Server) SignUp(c echo.Context) error {
	var b signUpReq
	if err := s.bind(c, &b); err != nil {
		return bindError(c, err)
	}

	u, err := s.userService.SignUp(c.Request().Context(), s.usersUoW(), b.Username, b.Email, b.Password)
	if err != nil {
		if errors.Is(err, user.ErrUserExists) {
			return JsonError(c, http.StatusConflict, "Username or email already registered")
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusCreated, toUser(u, 0))
}

type listUsersReq struct {
	Limit  int `query:"limit" validate:"gte=0"`
	Offset int `query:"offset" validate:"gte=0"`
}

type listUsersResp struct {
	Users []User `json:"users"`
}

func (s *Server) ListUsers(c echo.Context) error {
	var req listUsersReq
	if err := s.bind(c, &req); err != nil {
		return bindError(c, err)
	}
	if req.Limit == 0 {
		req.Limit = defaultUsersLimit
	}
	req.Limit = min(req.Limit, maxUsersLimit)

	users, err := s.userService.List(c.Request().Context(), s.usersUoW(), req.Limit, req.Offset)
	if err != nil {
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, listUsersResp{
		Users: lo.Map(users, toUser),
	})
}

func (s *Server) GetMe(c echo.Context) error {
	me := currentUser(c)

	u, err := s.userService.GetByID(c.Request().Context(), s.usersUoW(), me.UserID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return JsonError(c, http.StatusNotFound, "User not found")
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, toUser(u, 0))
}

type updateMeReq struct {
	Username string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (s *Server) UpdateMe(c echo.Context) error {
	var b updateMeReq
	if err := s.bind(c, &b); err != nil {
		return bindError(c, err)
	}
	me := currentUser(c)

	u, err := s.userService.Update(c.Request().Context(), s.usersUoW(), me.UserID, userservice.Update{
		Username: b.Username,
		Email:    b.Email,
		Password: b.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, user.ErrUserNotFound):
			return JsonError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, user.ErrUsernameDuplicate):
			return JsonError(c, http.StatusConflict, "Username already registered")
		case errors.Is(err, user.ErrEmailDuplicate):
			return JsonError(c, http.StatusConflict, "Email already registered")
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, toUser(u, 0))
}

func (s *Server) DeleteMe(c echo.Context) error {
	me := currentUser(c)

	if err := s.userService.Delete(c.Request().Context(), s.usersUoW(), me.UserID); err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return JsonError(c, http.StatusNotFound, "User not found")
		}
		return s.internalError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
