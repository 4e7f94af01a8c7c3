package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"github.com/burenotti/go_bmi_backend/internal/app/authapp"
	bmiservice "github.com/burenotti/go_bmi_backend/internal/app/bmi"
	categoryservice "github.com/burenotti/go_bmi_backend/internal/app/category"
	measurementservice "github.com/burenotti/go_bmi_backend/internal/app/measurement"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	userservice "github.com/burenotti/go_bmi_backend/internal/app/user"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"
)

const (
	writeTimeout      = 10 * time.Second
	readTimeout       = 10 * time.Second
	idleTimeout       = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	maxHeaderBytes    = 4096
)

type Server struct {
	handler            *echo.Echo
	logger             *slog.Logger
	addr               string
	basePath           string
	allowedOrigins     []string
	db                 *storage.DB
	msgBus             unitofwork.MessageBus
	authorizer         *authapp.Authorizer
	bmiService         *bmiservice.Service
	categoryService    *categoryservice.Service
	userService        *userservice.Service
	measurementService *measurementservice.Service
	validator          *validator.Validate
}

func NewServer(opt ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.WriteTimeout = writeTimeout
	e.Server.ReadTimeout = readTimeout
	e.Server.IdleTimeout = idleTimeout
	e.Server.ReadHeaderTimeout = readHeaderTimeout
	e.Server.MaxHeaderBytes = maxHeaderBytes

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	s := &Server{
		handler:   e,
		logger:    slog.Default(),
		validator: v,
	}

	for _, opt := range opt {
		opt(s)
	}

	e.HTTPErrorHandler = s.handleError
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.RequestID())
	e.Use(slogecho.NewWithConfig(s.logger, slogecho.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelInfo,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	e.Use(middleware.Recover())
	if len(s.allowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.allowedOrigins,
			AllowCredentials: true,
		}))
	}

	s.Mount()
	return s
}

func (s *Server) Mount() {
	root := s.handler.Group(s.basePath)
	root.GET("", s.Root)

	s.MountBMI(root)
	s.MountCategories(root)
	s.MountUsers(root)
	s.MountMeasurements(root)
}

func (s *Server) Start() error {
	return s.handler.Start(s.addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.handler.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type rootResp struct {
	Message string `json:"message"`
}

func (s *Server) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, rootResp{Message: "Hello, World!"})
}

// bind decodes the request into i and validates it. Malformed bodies fail
// with 400; wrongly typed fields and validation rule violations with 422.
func (s *Server) bind(c echo.Context, i interface{}) error {
	if err := c.Bind(i); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, typeMessage(typeErr)).SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, "bad request").SetInternal(err)
	}
	if err := s.validator.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return echo.NewHTTPError(http.StatusBadRequest, "bad request").SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, validationMessage(errs[0]))
	}
	return nil
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: field required", e.Field())
	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", e.Field(), e.Param())
	case "min", "max":
		return fmt.Sprintf("%s: %s length is %s", e.Field(), e.Tag(), e.Param())
	default:
		return fmt.Sprintf("%s: failed on the '%s' rule", e.Field(), e.Tag())
	}
}

func typeMessage(e *json.UnmarshalTypeError) string {
	field := e.Field
	if field == "" {
		field = "body"
	}
	kind := e.Type.Kind().String()
	switch e.Type.Kind() {
	case reflect.Float32, reflect.Float64:
		kind = "number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		kind = "integer"
	}
	return fmt.Sprintf("%s: value is not a valid %s", field, kind)
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query", "param", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func (s *Server) categoriesUoW() *unitofwork.UnitOfWork[*categoryservice.AtomicContext] {
	return unitofwork.New[*categoryservice.AtomicContext](
		s.db,
		categoryservice.NewAtomicContext,
		s.msgBus,
		s.logger,
	)
}

func (s *Server) usersUoW() *unitofwork.UnitOfWork[*userservice.AtomicContext] {
	return unitofwork.New[*userservice.AtomicContext](
		s.db,
		userservice.AtomicContextFactory(s.logger),
		s.msgBus,
		s.logger,
	)
}

func (s *Server) measurementsUoW() *unitofwork.UnitOfWork[*measurementservice.AtomicContext] {
	return unitofwork.New[*measurementservice.AtomicContext](
		s.db,
		measurementservice.NewAtomicContext,
		s.msgBus,
		s.logger,
	)
}

// pathID reads the ":id" path parameter.
func pathID(c echo.Context) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil {
		return 0, echo.NewHTTPError(http.StatusUnprocessableEntity, "id: must be an integer")
	}
	return id, nil
}
