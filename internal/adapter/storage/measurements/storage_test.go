package measurementstorage

import (
	"context"
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage"
	categorystorage "github.com/burenotti/go_bmi_backend/internal/adapter/storage/categories"
	"github.com/burenotti/go_bmi_backend/internal/adapter/storage/storagetest"
	userstorage "github.com/burenotti/go_bmi_backend/internal/adapter/storage/users"
	"github.com/burenotti/go_bmi_backend/internal/domain/bmi"
	"github.com/burenotti/go_bmi_backend/internal/domain/measurement"
	"github.com/burenotti/go_bmi_backend/internal/domain/user"
	"testing"
	"time"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) string        { return password }
func (plainHasher) Compare(hash, password string) bool { return hash == password }

func setup(t *testing.T) (*storage.DB, int64) {
	t.Helper()
	ctx := context.Background()
	db := storagetest.Open(t)

	if _, err := categorystorage.NewStorage(db).Seed(ctx); err != nil {
		t.Fatalf("Seed error: %v", err)
	}
	u := user.NewUser("alice", "alice@example.com", "pw", plainHasher{})
	if err := userstorage.NewStorage(db, nil).Add(ctx, u); err != nil {
		t.Fatalf("user Add error: %v", err)
	}
	return db, u.UserID
}

func record(t *testing.T, s *Storage, userID, categoryID int64, weight float64, at time.Time) *measurement.Measurement {
	t.Helper()
	in := bmi.Input{Height: 175, HeightUnit: bmi.Centimeters, Weight: weight, WeightUnit: bmi.Kilograms}
	m := measurement.New(userID, categoryID, in, nil, at)
	if err := s.Add(context.Background(), m); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	return m
}

func TestAddAndGet(t *testing.T) {
	ctx := context.Background()
	db, userID := setup(t)
	s := NewStorage(db)

	notes := "morning"
	at := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	in := bmi.Input{Height: 175, HeightUnit: bmi.Centimeters, Weight: 70, WeightUnit: bmi.Kilograms}
	m := measurement.New(userID, 2, in, &notes, at)
	if err := s.Add(ctx, m); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	events := s.CollectEvents()
	if len(events) != 1 || events[0].Type() != measurement.EventRecorded {
		t.Fatalf("CollectEvents() = %v, want one %s", events, measurement.EventRecorded)
	}

	got, err := s.GetByID(ctx, m.MeasurementID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if got.BMI != 22.86 || got.HeightM != 1.75 || got.HeightUnit != bmi.Centimeters || got.CategoryID != 2 {
		t.Errorf("GetByID = %+v", got)
	}
	if got.Notes == nil || *got.Notes != "morning" {
		t.Errorf("Notes = %v, want morning", got.Notes)
	}
	if !got.RecordedAt.Equal(at) {
		t.Errorf("RecordedAt = %v, want %v", got.RecordedAt, at)
	}

	if _, err := s.GetByID(ctx, 999); !errors.Is(err, measurement.ErrMeasurementNotFound) {
		t.Errorf("GetByID(999) error = %v, want ErrMeasurementNotFound", err)
	}
}

func TestAddUnknownUser(t *testing.T) {
	db, _ := setup(t)
	s := NewStorage(db)

	in := bmi.Input{Height: 1.8, HeightUnit: bmi.Meters, Weight: 80, WeightUnit: bmi.Kilograms}
	err := s.Add(context.Background(), measurement.New(999, 2, in, nil, time.Now()))
	if !errors.Is(err, measurement.ErrUserNotFound) {
		t.Errorf("Add for unknown user error = %v, want ErrUserNotFound", err)
	}
}

func TestListFiltersAndStats(t *testing.T) {
	ctx := context.Background()
	db, userID := setup(t)
	s := NewStorage(db)

	day := func(d int) time.Time { return time.Date(2024, 3, d, 9, 0, 0, 0, time.UTC) }
	record(t, s, userID, 2, 70, day(1))
	record(t, s, userID, 3, 80, day(2))
	last := record(t, s, userID, 2, 72, day(3))

	all, err := s.List(ctx, measurement.Filter{UserID: userID})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(all) != 3 || all[0].MeasurementID != last.MeasurementID {
		t.Fatalf("List must return 3 measurements newest first, got %d", len(all))
	}

	overweight := int64(3)
	byCategory, err := s.List(ctx, measurement.Filter{UserID: userID, CategoryID: &overweight})
	if err != nil || len(byCategory) != 1 || byCategory[0].Weight != 80 {
		t.Errorf("List by category = (%d, %v), want the 80 kg record", len(byCategory), err)
	}

	since, until := day(2), day(2).Add(time.Hour)
	ranged, err := s.List(ctx, measurement.Filter{UserID: userID, Since: &since, Until: &until})
	if err != nil || len(ranged) != 1 || ranged[0].Weight != 80 {
		t.Errorf("List by range = (%d, %v), want the 80 kg record", len(ranged), err)
	}

	paged, err := s.List(ctx, measurement.Filter{UserID: userID, Limit: 1, Offset: 1})
	if err != nil || len(paged) != 1 || paged[0].Weight != 80 {
		t.Errorf("List paged = (%d, %v), want the 80 kg record", len(paged), err)
	}

	latest, err := s.Latest(ctx, userID)
	if err != nil || latest.MeasurementID != last.MeasurementID {
		t.Errorf("Latest = (%+v, %v)", latest, err)
	}

	stats, err := s.Stats(ctx, userID)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Total != 3 || stats.MinBMI == nil || *stats.MinBMI != all[2].BMI || *stats.LatestBMI != last.BMI {
		t.Errorf("Stats = %+v", stats)
	}
	if *stats.MaxBMI != byCategory[0].BMI {
		t.Errorf("Stats.MaxBMI = %v, want %v", *stats.MaxBMI, byCategory[0].BMI)
	}
}

func TestStatsEmpty(t *testing.T) {
	db, userID := setup(t)
	stats, err := NewStorage(db).Stats(context.Background(), userID)
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}
	if stats.Total != 0 || stats.AvgBMI != nil || stats.MinBMI != nil || stats.MaxBMI != nil || stats.LatestBMI != nil {
		t.Errorf("Stats for empty history = %+v", stats)
	}
	if _, err := NewStorage(db).Latest(context.Background(), userID); !errors.Is(err, measurement.ErrMeasurementNotFound) {
		t.Errorf("Latest error = %v, want ErrMeasurementNotFound", err)
	}
}

func TestNotesAndDelete(t *testing.T) {
	ctx := context.Background()
	db, userID := setup(t)
	s := NewStorage(db)

	m := record(t, s, userID, 2, 70, time.Now())
	notes := "edited"
	m.SetNotes(&notes)
	if err := s.SetNotes(ctx, m); err != nil {
		t.Fatalf("SetNotes error: %v", err)
	}
	got, _ := s.GetByID(ctx, m.MeasurementID)
	if got.Notes == nil || *got.Notes != "edited" {
		t.Errorf("Notes = %v, want edited", got.Notes)
	}

	if err := s.Delete(ctx, got); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := s.Delete(ctx, got); !errors.Is(err, measurement.ErrMeasurementNotFound) {
		t.Errorf("second Delete error = %v, want ErrMeasurementNotFound", err)
	}
}

func TestUserDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db, userID := setup(t)
	s := NewStorage(db)
	m := record(t, s, userID, 2, 70, time.Now())

	users := userstorage.NewStorage(db, nil)
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if err := users.Delete(ctx, u); err != nil {
		t.Fatalf("user Delete error: %v", err)
	}

	if _, err := s.GetByID(ctx, m.MeasurementID); !errors.Is(err, measurement.ErrMeasurementNotFound) {
		t.Errorf("measurement must be removed with its owner, got %v", err)
	}
}
