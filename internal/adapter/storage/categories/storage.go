package categorystorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage/sqlutil"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"github.com/leporo/sqlf"
	"github.com/r3labs/diff"
)

type Storage struct {
	base *sqlutil.BaseStorage
}

func NewStorage(db storage.DBContext) *Storage {
	return &Storage{
		base: sqlutil.NewBaseStorage(db),
	}
}

func (s *Storage) Add(ctx context.Context, c *category.Category) error {
	q := sqlf.InsertInto("categories").
		Set("name", c.Name).
		Set("min_value", c.MinValue).
		Set("max_value", c.MaxValue).
		Returning("category_id").To(&c.ID)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil {
		if sqlutil.ViolatesUnique(err, "categories", "name") {
			return category.ErrCategoryExists
		}
		return storage.InternalError(err)
	}
	return nil
}

func (s *Storage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt),
) ([]category.Category, error) {
	var tmp category.Category

	q := sqlf.From("categories c").
		Select("c.category_id").To(&tmp.ID).
		Select("c.name").To(&tmp.Name).
		Select("c.min_value").To(&tmp.MinValue).
		Select("c.max_value").To(&tmp.MaxValue)

	modify(q)

	var result []category.Category
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		result = append(result, tmp)
	})

	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return result, nil
	}
	return nil, storage.InternalError(err)
}

func (s *Storage) getOne(ctx context.Context, modify func(stmt *sqlf.Stmt)) (*category.Category, error) {
	result, err := s.get(ctx, func(stmt *sqlf.Stmt) {
		modify(stmt)
		stmt.Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, category.ErrCategoryNotFound
	}
	return &result[0], nil
}

// List returns every category ordered by ascending lower bound, the open-ended one first.
func (s *Storage) List(ctx context.Context) ([]category.Category, error) {
	result, err := s.get(ctx, func(stmt *sqlf.Stmt) {
		stmt.OrderBy("c.min_value IS NOT NULL", "c.min_value", "c.category_id")
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	return s.getOne(ctx, func(stmt *sqlf.Stmt) {
		stmt.Where("c.category_id = ?", id)
	})
}

func (s *Storage) GetByName(ctx context.Context, name string) (*category.Category, error) {
	return s.getOne(ctx, func(stmt *sqlf.Stmt) {
		stmt.Where("c.name = ?", name)
	})
}

// GetByBMI finds the row whose half-open range [min_value, max_value) contains bmi.
func (s *Storage) GetByBMI(ctx context.Context, bmi float64) (*category.Category, error) {
	return s.getOne(ctx, func(stmt *sqlf.Stmt) {
		stmt.Where("(c.min_value IS NULL OR c.min_value <= ?)", bmi).
			Where("(c.max_value IS NULL OR c.max_value > ?)", bmi).
			OrderBy("c.min_value IS NOT NULL", "c.min_value")
	})
}

// Persist writes only the columns that differ from the stored row.
func (s *Storage) Persist(ctx context.Context, c *category.Category) error {
	dbState, err := s.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}

	changes, err := diff.Diff(dbState, c)
	if err != nil {
		return storage.InternalError(err)
	}
	if len(changes) == 0 {
		return nil
	}

	q := sqlf.Update("categories").Where("category_id = ?", c.ID)
	q = sqlutil.MakeUpdateQuery(q, changes)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if sqlutil.ViolatesUnique(err, "categories", "name") {
		return category.ErrCategoryExists
	}
	return sqlutil.AssertUpdated(res, err, category.ErrCategoryNotFound)
}

func (s *Storage) Delete(ctx context.Context, id int64) error {
	q := sqlf.DeleteFrom("categories").Where("category_id = ?", id)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if sqlutil.ViolatesForeignKey(err) {
		return category.ErrCategoryInUse
	}
	return sqlutil.AssertUpdated(res, err, category.ErrCategoryNotFound)
}

// Seed inserts the standard categories missing by name and returns how many were added.
func (s *Storage) Seed(ctx context.Context) (int, error) {
	added := 0
	for _, c := range category.Standard() {
		_, err := s.GetByName(ctx, c.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, category.ErrCategoryNotFound) {
			return added, err
		}

		if err := s.Add(ctx, &c); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (s *Storage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

func (s *Storage) Close() error {
	s.base.Close()
	return nil
}
