package categoryservice

import (
	"context"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/app/unitofwork"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"log/slog"
)

type Service struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

func (s *Service) List(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (cats []category.Category, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		cats, err = ctx.CategoryStorage.List(ctx.Context())
		return err
	})
	return
}

func (s *Service) GetByID(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	id int64,
) (c *category.Category, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		c, err = ctx.CategoryStorage.GetByID(ctx.Context(), id)
		return err
	})
	return
}

func (s *Service) GetByName(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	name string,
) (c *category.Category, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		c, err = ctx.CategoryStorage.GetByName(ctx.Context(), name)
		return err
	})
	return
}

// GetByBMI classifies bmi against the stored categories.
func (s *Service) GetByBMI(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	bmi float64,
) (c *category.Category, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		c, err = ctx.CategoryStorage.GetByBMI(ctx.Context(), bmi)
		return err
	})
	return
}

func (s *Service) Create(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	name string,
	minValue, maxValue *float64,
) (c *category.Category, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		if c, err = category.New(name, minValue, maxValue); err != nil {
			return err
		}

		if err := s.checkOverlaps(ctx, c); err != nil {
			return err
		}

		if err := ctx.CategoryStorage.Add(ctx.Context(), c); err != nil {
			return err
		}

		s.logger.Info("category created", "category_id", c.ID, "name", c.Name)
		return ctx.Commit()
	})
	return
}

func (s *Service) Update(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	id int64,
	name string,
	minValue, maxValue *float64,
) (c *category.Category, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		if c, err = ctx.CategoryStorage.GetByID(ctx.Context(), id); err != nil {
			return err
		}

		c.Name = name
		c.MinValue = minValue
		c.MaxValue = maxValue
		if err := c.Validate(); err != nil {
			return err
		}

		if err := s.checkOverlaps(ctx, c); err != nil {
			return err
		}

		if err := ctx.CategoryStorage.Persist(ctx.Context(), c); err != nil {
			return err
		}

		s.logger.Info("category updated", "category_id", c.ID, "name", c.Name)
		return ctx.Commit()
	})
	return
}

func (s *Service) Delete(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
	id int64,
) error {
	return uow.Atomic(ctx, func(ctx *AtomicContext) error {
		if err := ctx.CategoryStorage.Delete(ctx.Context(), id); err != nil {
			return err
		}

		s.logger.Info("category deleted", "category_id", id)
		return ctx.Commit()
	})
}

// Seed inserts the standard categories that are not stored yet.
func (s *Service) Seed(
	ctx context.Context,
	uow *unitofwork.UnitOfWork[*AtomicContext],
) (added int, err error) {
	err = uow.Atomic(ctx, func(ctx *AtomicContext) error {
		var err error
		if added, err = ctx.CategoryStorage.Seed(ctx.Context()); err != nil {
			return err
		}

		cats, err := ctx.CategoryStorage.List(ctx.Context())
		if err != nil {
			return err
		}
		if err := category.ValidatePartition(cats); err != nil {
			s.logger.Warn("stored categories leave gaps or overlap", "error", err)
		}

		return ctx.Commit()
	})
	return
}

func (s *Service) checkOverlaps(ctx *AtomicContext, c *category.Category) error {
	cats, err := ctx.CategoryStorage.List(ctx.Context())
	if err != nil {
		return err
	}

	for i := range cats {
		if cats[i].ID == c.ID {
			continue
		}
		if c.Overlaps(&cats[i]) {
			return fmt.Errorf("%w: %q", category.ErrCategoryOverlaps, cats[i].Name)
		}
	}
	return nil
}
