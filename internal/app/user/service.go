package userservice

import (
	"context"
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/app/authapp"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	"github.com/burenotti/go_bmi_backend/internal/domain/user"
	"log/slog"
)

type Service struct {
	logger     *slog.Logger
	Authorizer *authapp.Authorizer
}

func New(auth *authapp.Authorizer, logger *slog.Logger) *Service {
	return &Service{
		logger:     logger,
		Authorizer: auth,
	}
}

func (s *Service) SignUp(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	username string,
	email string,
	password string,
) (u *user.User, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		exists, err := ctx.UserStorage.Exists(ctx.Context(), username, email)
		if err != nil {
			return err
		}
		if exists {
			return user.ErrUserExists
		}

		u = user.NewUser(username, email, password, s.Authorizer)
		if err := ctx.UserStorage.Add(ctx.Context(), u); err != nil {
			return err
		}

		return ctx.Commit()
	})
	return
}

// Login checks the credentials and issues an access token. The login may be
// either a username or an email.
func (s *Service) Login(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	device user.Device,
	login string,
	password string,
) (token string, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		u, err := ctx.UserStorage.GetByUsername(ctx.Context(), login)
		if errors.Is(err, user.ErrUserNotFound) {
			u, err = ctx.UserStorage.GetByEmail(ctx.Context(), login)
		}
		if err != nil {
			if errors.Is(err, user.ErrUserNotFound) {
				return user.ErrInvalidCredentials
			}
			return err
		}

		if err := u.Login(s.Authorizer, password, device); err != nil {
			return err
		}

		if token, err = s.Authorizer.GenerateAccessToken(u.UserID); err != nil {
			return err
		}

		return ctx.Commit()
	})
	return
}

func (s *Service) GetByID(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
) (u *user.User, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		u, err = ctx.UserStorage.GetByID(ctx.Context(), userID)
		return err
	})
	return
}

func (s *Service) List(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	limit int,
	offset int,
) (users []*user.User, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		users, err = ctx.UserStorage.List(ctx.Context(), limit, offset)
		return err
	})
	return
}

type Update struct {
	Username string
	Email    string
	Password string
}

// Update applies the non-empty fields of upd.
func (s *Service) Update(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
	upd Update,
) (u *user.User, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		if u, err = ctx.UserStorage.GetByID(ctx.Context(), userID); err != nil {
			return err
		}

		u.ChangeUsername(upd.Username)
		u.ChangeEmail(upd.Email)
		u.ChangePassword(s.Authorizer, upd.Password)

		if err := ctx.UserStorage.Persist(ctx.Context(), u); err != nil {
			return err
		}

		return ctx.Commit()
	})
	return
}

func (s *Service) Delete(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
) error {
	return uow.Atomic(ctx, func(ctx *AtomicContext) error {
		u, err := ctx.UserStorage.GetByID(ctx.Context(), userID)
		if err != nil {
			return err
		}

		u.MarkDeleted()
		if err := ctx.UserStorage.Delete(ctx.Context(), u); err != nil {
			return err
		}

		return ctx.Commit()
	})
}
