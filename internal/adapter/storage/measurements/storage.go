package measurementstorage

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage/sqlutil"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/bmi"
	"github.com/burenotti/go_bmi_backend/internal/domain/measurement"
	"github.com/leporo/sqlf"
	"github.com/samber/lo"
	"time"
)

type Storage struct {
	base *sqlutil.BaseStorage
}

func NewStorage(db storage.DBContext) *Storage {
	return &Storage{
		base: sqlutil.NewBaseStorage(db),
	}
}

func (s *Storage) Add(ctx context.Context, m *measurement.Measurement) error {
	q := sqlf.InsertInto("measurements").
		Set("user_id", m.UserID).
		Set("category_id", m.CategoryID).
		Set("height", m.Height).
		Set("height_unit", string(m.HeightUnit)).
		Set("weight", m.Weight).
		Set("weight_unit", string(m.WeightUnit)).
		Set("height_m", m.HeightM).
		Set("weight_kg", m.WeightKg).
		Set("bmi", m.BMI).
		Set("notes", m.Notes).
		Set("recorded_at", m.RecordedAt).
		Returning("measurement_id").To(&m.MeasurementID)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil {
		if sqlutil.ViolatesForeignKey(err) {
			return errors.Join(measurement.ErrUserNotFound, err)
		}
		return storage.InternalError(err)
	}

	m.Recorded()
	s.base.MarkSeen(m)
	return nil
}

func (s *Storage) get(
	ctx context.Context,
	modify func(stmt *sqlf.Stmt),
) ([]*measurement.Measurement, error) {
	var tmp measurementRow

	q := sqlf.From("measurements m").
		Select("m.measurement_id").To(&tmp.MeasurementID).
		Select("m.user_id").To(&tmp.UserID).
		Select("m.category_id").To(&tmp.CategoryID).
		Select("m.height").To(&tmp.Height).
		Select("m.height_unit").To(&tmp.HeightUnit).
		Select("m.weight").To(&tmp.Weight).
		Select("m.weight_unit").To(&tmp.WeightUnit).
		Select("m.height_m").To(&tmp.HeightM).
		Select("m.weight_kg").To(&tmp.WeightKg).
		Select("m.bmi").To(&tmp.BMI).
		Select("m.notes").To(&tmp.Notes).
		Select("m.recorded_at").To(&tmp.RecordedAt)

	modify(q)

	var result []*measurement.Measurement
	err := q.QueryAndClose(ctx, s.base.DB, func(rows *sql.Rows) {
		result = append(result, tmp.toDomain())
	})

	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return result, nil
	}
	return nil, storage.InternalError(err)
}

func (s *Storage) GetByID(ctx context.Context, id int64) (*measurement.Measurement, error) {
	result, err := s.get(ctx, func(stmt *sqlf.Stmt) {
		stmt.Where("m.measurement_id = ?", id)
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, measurement.ErrMeasurementNotFound
	}

	s.base.MarkSeen(result[0])
	return result[0], nil
}

// List returns measurements matching f, newest first.
func (s *Storage) List(ctx context.Context, f measurement.Filter) ([]*measurement.Measurement, error) {
	f = f.Normalize()
	return s.get(ctx, func(stmt *sqlf.Stmt) {
		applyFilter(stmt, f)
		stmt.OrderBy("m.recorded_at DESC", "m.measurement_id DESC").
			Limit(f.Limit).
			Offset(f.Offset)
	})
}

func (s *Storage) Latest(ctx context.Context, userID int64) (*measurement.Measurement, error) {
	result, err := s.get(ctx, func(stmt *sqlf.Stmt) {
		stmt.Where("m.user_id = ?", userID).
			OrderBy("m.recorded_at DESC", "m.measurement_id DESC").
			Limit(1)
	})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, measurement.ErrMeasurementNotFound
	}
	return result[0], nil
}

func (s *Storage) SetNotes(ctx context.Context, m *measurement.Measurement) error {
	q := sqlf.Update("measurements").
		Where("measurement_id = ?", m.MeasurementID).
		Set("notes", m.Notes)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	return sqlutil.AssertUpdated(res, err, measurement.ErrMeasurementNotFound)
}

func (s *Storage) Delete(ctx context.Context, m *measurement.Measurement) error {
	q := sqlf.DeleteFrom("measurements").Where("measurement_id = ?", m.MeasurementID)

	res, err := q.ExecAndClose(ctx, s.base.DB)
	if err := sqlutil.AssertUpdated(res, err, measurement.ErrMeasurementNotFound); err != nil {
		return err
	}

	s.base.MarkSeen(m)
	return nil
}

// Stats aggregates the BMI values stored for a user.
func (s *Storage) Stats(ctx context.Context, userID int64) (measurement.Stats, error) {
	var (
		stats measurement.Stats
		total int64
	)

	q := sqlf.From("measurements").
		Select("COUNT(*)").To(&total).
		Select("AVG(bmi)").To(&stats.AvgBMI).
		Select("MIN(bmi)").To(&stats.MinBMI).
		Select("MAX(bmi)").To(&stats.MaxBMI).
		Where("user_id = ?", userID)

	if err := q.QueryRowAndClose(ctx, s.base.DB); err != nil {
		return measurement.Stats{}, storage.InternalError(err)
	}

	stats.Total = int(total)
	if total == 0 {
		return stats, nil
	}

	latest, err := s.Latest(ctx, userID)
	if err != nil {
		return measurement.Stats{}, err
	}
	stats.LatestBMI = lo.ToPtr(latest.BMI)
	return stats, nil
}

func (s *Storage) CollectEvents() []domain.Event {
	return s.base.CollectEvents()
}

func (s *Storage) Close() error {
	s.base.Close()
	return nil
}

func applyFilter(stmt *sqlf.Stmt, f measurement.Filter) {
	stmt.Where("m.user_id = ?", f.UserID)
	if f.CategoryID != nil {
		stmt.Where("m.category_id = ?", *f.CategoryID)
	}
	if f.Since != nil {
		stmt.Where("m.recorded_at >= ?", f.Since.UTC())
	}
	if f.Until != nil {
		stmt.Where("m.recorded_at <= ?", f.Until.UTC())
	}
}

type measurementRow struct {
	MeasurementID int64
	UserID        int64
	CategoryID    int64
	Height        float64
	HeightUnit    string
	Weight        float64
	WeightUnit    string
	HeightM       float64
	WeightKg      float64
	BMI           float64
	Notes         *string
	RecordedAt    time.Time
}

func (r *measurementRow) toDomain() *measurement.Measurement {
	return &measurement.Measurement{
		MeasurementID: r.MeasurementID,
		UserID:        r.UserID,
		CategoryID:    r.CategoryID,
		Height:        r.Height,
		HeightUnit:    bmi.HeightUnit(r.HeightUnit),
		Weight:        r.Weight,
		WeightUnit:    bmi.WeightUnit(r.WeightUnit),
		HeightM:       r.HeightM,
		WeightKg:      r.WeightKg,
		BMI:           r.BMI,
		Notes:         r.Notes,
		RecordedAt:    r.RecordedAt.UTC(),
	}
}
