package measurementservice

import (
	"context"
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	categorystorage "github.com/burenotti/go_bmi_backend/internal/adapter/storage/categories"
	measurementstorage "github.com/burenotti/go_bmi_backend/internal/adapter/storage/measurements"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"github.com/burenotti/go_bmi_backend/internal/domain/measurement"
)

type MeasurementStorage interface {
	Add(ctx context.Context, m *measurement.Measurement) error
	GetByID(ctx context.Context, id int64) (*measurement.Measurement, error)
	List(ctx context.Context, f measurement.Filter) ([]*measurement.Measurement, error)
	Latest(ctx context.Context, userID int64) (*measurement.Measurement, error)
	SetNotes(ctx context.Context, m *measurement.Measurement) error
	Delete(ctx context.Context, m *measurement.Measurement) error
	Stats(ctx context.Context, userID int64) (measurement.Stats, error)
	CollectEvents() []domain.Event
	Close() error
}

type CategoryStorage interface {
	GetByBMI(ctx context.Context, bmi float64) (*category.Category, error)
	Close() error
}

type AtomicContext struct {
	ctx                context.Context
	db                 storage.DBContext
	MeasurementStorage MeasurementStorage
	CategoryStorage    CategoryStorage
}

func NewAtomicContext(ctx context.Context, dbContext storage.DBContext) (*AtomicContext, error) {
	return &AtomicContext{
		ctx:                ctx,
		db:                 dbContext,
		MeasurementStorage: measurementstorage.NewStorage(dbContext),
		CategoryStorage:    categorystorage.NewStorage(dbContext),
	}, nil
}

func (a *AtomicContext) Context() context.Context {
	return a.ctx
}

func (a *AtomicContext) Commit() error {
	return a.db.Commit()
}

func (a *AtomicContext) Close() error {
	return errors.Join(
		a.MeasurementStorage.Close(),
		a.CategoryStorage.Close(),
	)
}

func (a *AtomicContext) CollectEvents() []domain.Event {
	return a.MeasurementStorage.CollectEvents()
}
