package userservice

import (
	"context"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	userstorage "github.com/burenotti/go_bmi_backend/internal/adapter/storage/users"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/user"
	"log/slog"
)

type UserStorage interface {
	Add(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, userID int64) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*user.User, error)
	Persist(ctx context.Context, u *user.User) error
	Delete(ctx context.Context, u *user.User) error
	CollectEvents() []domain.Event
	Close() error
}

type AtomicContext struct {
	ctx         context.Context
	db          storage.DBContext
	UserStorage UserStorage
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() error {
	return a.UserStorage.Close()
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return a.UserStorage.CollectEvents()
}

// AtomicContextFactory binds the storage logger, the result fits unitofwork.New.
func AtomicContextFactory(logger *slog.Logger) func(context.Context, storage.DBContext) (*AtomicContext, error) {
	return func(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
		return &AtomicContext{
			ctx:         ctx,
			db:          dbContext,
			UserStorage: userstorage.NewStorage(dbContext, logger),
		}, nil
	}
}
