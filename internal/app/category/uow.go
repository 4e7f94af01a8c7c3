package categoryservice

import (
	"context"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	categorystorage "github.com/burenotti/go_bmi_backend/internal/adapter/storage/categories"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
)

type CategoryStorage interface {
	Add(ctx context.Context, c *category.Category) error
	GetByID(ctx context.Context, id int64) (*category.Category, error)
	GetByName(ctx context.Context, name string) (*category.Category, error)
	GetByBMI(ctx context.Context, bmi float64) (*category.Category, error)
	List(ctx context.Context) ([]category.Category, error)
	Persist(ctx context.Context, c *category.Category) error
	Delete(ctx context.Context, id int64) error
	Seed(ctx context.Context) (int, error)
	CollectEvents() []domain.Event
	Close() error
}

type AtomicContext struct {
	ctx             context.Context
	db              storage.DBContext
	CategoryStorage CategoryStorage
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:             ctx,
		db:              dbContext,
		CategoryStorage: categorystorage.NewStorage(dbContext),
	}, nil
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() error {
	return a.CategoryStorage.Close()
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return a.CategoryStorage.CollectEvents()
}
