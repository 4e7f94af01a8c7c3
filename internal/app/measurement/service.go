package measurementservice

import (
	"context"
	"errors"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	"github.com/burenotti/go_bmi_backend/internal/domain/bmi"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"github.com/burenotti/go_bmi_backend/internal/domain/measurement"
	"log/slog"
	"time"
)

var (
	ErrUncategorized = errors.New("no category covers the bmi")
)

type Service struct {
	logger *slog.Logger
	now    func() time.Time
}

func New(logger *slog.Logger) *Service {
	return &Service{
		logger: logger,
		now:    time.Now,
	}
}

// Record computes the BMI of in and stores it in the history of userID,
// classified against the stored categories.
func (s *Service) Record(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
	in bmi.Input,
	notes *string,
) (m *measurement.Measurement, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		_, _, value := measurement.Compute(in)

		c, err := ctx.CategoryStorage.GetByBMI(ctx.Context(), value)
		if err != nil {
			if errors.Is(err, category.ErrCategoryNotFound) {
				return fmt.Errorf("%w: %v", ErrUncategorized, value)
			}
			return err
		}

		m = measurement.New(userID, c.ID, in, notes, s.now())
		if err := ctx.MeasurementStorage.Add(ctx.Context(), m); err != nil {
			return err
		}

		s.logger.Debug("measurement recorded",
			"measurement_id", m.MeasurementID,
			"user_id", userID,
			"bmi", m.BMI,
			"category", c.Name,
		)
		return ctx.Commit()
	})
	return
}

// GetByID returns the measurement only if it belongs to userID.
func (s *Service) GetByID(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
	id int64,
) (m *measurement.Measurement, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		m, err = getOwned(ctx, userID, id)
		return err
	})
	return
}

func (s *Service) List(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	f measurement.Filter,
) (ms []*measurement.Measurement, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		ms, err = ctx.MeasurementStorage.List(ctx.Context(), f)
		return err
	})
	return
}

func (s *Service) Latest(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
) (m *measurement.Measurement, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		m, err = ctx.MeasurementStorage.Latest(ctx.Context(), userID)
		return err
	})
	return
}

func (s *Service) Stats(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
) (stats measurement.Stats, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		stats, err = ctx.MeasurementStorage.Stats(ctx.Context(), userID)
		return err
	})
	return
}

func (s *Service) UpdateNotes(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	userID int64,
	id int64,
	notes *string,
) (m *measurement.Measurement, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		if m, err = getOwned(ctx, userID, id); err != nil {
			return err
		}

		m.SetNotes(notes)
		if err := ctx.MeasurementStorage.SetNotes(ctx.Context(), m); err != nil {
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
	id int64,
) error {
	return uow.Atomic(ctx, func(ctx *AtomicContext) error {
		m, err := getOwned(ctx, userID, id)
		if err != nil {
			return err
		}

		m.MarkDeleted()
		if err := ctx.MeasurementStorage.Delete(ctx.Context(), m); err != nil {
			return err
		}

		return ctx.Commit()
	})
}

// getOwned hides measurements of other users behind ErrMeasurementNotFound.
func getOwned(ctx *AtomicContext, userID, id int64) (*measurement.Measurement, error) {
	m, err := ctx.MeasurementStorage.GetByID(ctx.Context(), id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, measurement.ErrMeasurementNotFound
	}
	return m, nil
}
