package measurement

import (
	"errors"
	"github.com/burenotti/go_bmi_backend/internal/domain"
	"github.com/burenotti/go_bmi_backend/internal/domain/bmi"
	"time"
)

var (
	ErrMeasurementNotFound = errors.New("measurement not found")
	ErrUserNotFound        = errors.New("measurement owner not found")
)

const (
	EventRecorded = "measurement.recorded"
	EventDeleted  = "measurement.deleted"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Measurement is an immutable history record of one BMI calculation.
// Only Notes may change after creation.
type Measurement struct {
	domain.Aggregate
	MeasurementID int64
	UserID        int64
	CategoryID    int64
	Height        float64
	HeightUnit    bmi.HeightUnit
	Weight        float64
	WeightUnit    bmi.WeightUnit
	HeightM       float64
	WeightKg      float64
	BMI           float64
	Notes         *string
	RecordedAt    time.Time
}

// New normalizes the input and computes the rounded BMI. categoryID must be
// the category of the returned BMI; use Compute to obtain it first.
func New(userID, categoryID int64, in bmi.Input, notes *string, recordedAt time.Time) *Measurement {
	heightM, weightKg, value := Compute(in)
	return &Measurement{
		UserID:     userID,
		CategoryID: categoryID,
		Height:     in.Height,
		HeightUnit: in.HeightUnit,
		Weight:     in.Weight,
		WeightUnit: in.WeightUnit,
		HeightM:    heightM,
		WeightKg:   weightKg,
		BMI:        value,
		Notes:      notes,
		RecordedAt: recordedAt.UTC(),
	}
}

// Compute returns normalized height and weight together with the rounded BMI.
func Compute(in bmi.Input) (heightM, weightKg, value float64) {
	heightM, weightKg = in.Normalize()
	value, _ = bmi.Calculate(heightM, weightKg)
	return heightM, weightKg, value
}

// Recorded must be called once the measurement got its identifier.
func (m *Measurement) Recorded() {
	m.PushEvent(RecordedEvent{
		At:            time.Now().UTC(),
		MeasurementID: m.MeasurementID,
		UserID:        m.UserID,
		BMI:           m.BMI,
	})
}

func (m *Measurement) SetNotes(notes *string) {
	m.Notes = notes
}

func (m *Measurement) MarkDeleted() {
	m.PushEvent(DeletedEvent{
		At:            time.Now().UTC(),
		MeasurementID: m.MeasurementID,
		UserID:        m.UserID,
	})
}

type Filter struct {
	UserID     int64
	CategoryID *int64
	Since      *time.Time
	Until      *time.Time
	Limit      int
	Offset     int
}

func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type Stats struct {
	Total     int
	AvgBMI    *float64
	MinBMI    *float64
	MaxBMI    *float64
	LatestBMI *float64
}

type RecordedEvent struct {
	At            time.Time
	MeasurementID int64
	UserID        int64
	BMI           float64
}

func (e RecordedEvent) Type() string {
	return EventRecorded
}

func (e RecordedEvent) PublishedAt() time.Time {
	return e.At
}

type DeletedEvent struct {
	At            time.Time
	MeasurementID int64
	UserID        int64
}

func (e DeletedEvent) Type() string {
	return EventDeleted
}

func (e DeletedEvent) PublishedAt() time.Time {
	return e.At
}
