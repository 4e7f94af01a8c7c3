package bmiservice

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/domain/bmi"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"log/slog"
)

var (
	ErrUnknownUnit = errors.New("unknown unit")
)

type Service struct {
	logger      *slog.Logger
	strictUnits bool
}

// New creates the calculator. With strictUnits unknown unit tokens are
// rejected instead of falling back to inches and pounds.
func New(logger *slog.Logger, strictUnits bool) *Service {
	return &Service{
		logger:      logger,
		strictUnits: strictUnits,
	}
}

func (s *Service) CheckUnits(in bmi.Input) error {
	if !s.strictUnits {
		return nil
	}
	if !bmi.KnownHeightUnit(in.HeightUnit) {
		return fmt.Errorf("%w: height_unit %q", ErrUnknownUnit, in.HeightUnit)
	}
	if !bmi.KnownWeightUnit(in.WeightUnit) {
		return fmt.Errorf("%w: weight_unit %q", ErrUnknownUnit, in.WeightUnit)
	}
	return nil
}

func (s *Service) Calculate(in bmi.Input) (bmi.Result, error) {
	if err := s.CheckUnits(in); err != nil {
		return bmi.Result{}, err
	}

	res := bmi.Evaluate(in)
	s.logger.Debug("bmi calculated", "bmi", res.BMI, "category", res.Category)
	return res, nil
}

// Categories returns the built-in category table.
func (s *Service) Categories() []category.Category {
	return category.Standard()
}
