package api

import (
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"github.com/burenotti/go_bmi_backend/internal/app/authapp"
	bmiservice "github.com/burenotti/go_bmi_backend/internal/app/bmi"
	categoryservice "github.com/burenotti/go_bmi_backend/internal/app/category"
	measurementservice "github.com/burenotti/go_bmi_backend/internal/app/measurement"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	userservice "github.com/burenotti/go_bmi_backend/internal/app/user"
	"log/slog"
	"net"
	"strconv"
	"strings"
)

type Option func(*Server)

func Addr(host string, port int) Option {
	return func(s *Server) {
		s.addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

func Logger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func Database(db *storage.DB) Option {
	return func(s *Server) {
		s.db = db
	}
}

func MessageBus(bus unitofwork.MessageBus) Option {
	return func(s *Server) {
		s.msgBus = bus
	}
}

func Authorizer(a *authapp.Authorizer) Option {
	return func(s *Server) {
		s.authorizer = a
	}
}

func BMIService(service *bmiservice.Service) Option {
	return func(s *Server) {
		s.bmiService = service
	}
}

func CategoryService(service *categoryservice.Service) Option {
	return func(s *Server) {
		s.categoryService = service
	}
}

func UserService(service *userservice.Service) Option {
	return func(s *Server) {
		s.userService = service
	}
}

func MeasurementService(service *measurementservice.Service) Option {
	return func(s *Server) {
		s.measurementService = service
	}
}

// BasePath mounts every route under prefix, e.g. "/api/v1".
func BasePath(prefix string) Option {
	return func(s *Server) {
		s.basePath = strings.TrimSuffix(prefix, "/")
	}
}

func AllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}
