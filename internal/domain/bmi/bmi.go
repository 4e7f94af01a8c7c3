// Package bmi normalizes body measurements, computes the Body Mass Index
// and classifies it against the standard category table.
//
// Everything here is pure: callers validate inputs (height > 0, weight > 0)
// before calling in.
package bmi

import (
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"math"
	"strconv"
	"strings"
)

const Precision = 2

type Input struct {
	Height     float64
	HeightUnit HeightUnit
	Weight     float64
	WeightUnit WeightUnit
}

// Normalize converts the input to meters and kilograms.
func (in Input) Normalize() (heightM, weightKg float64) {
	return ToMeters(in.Height, in.HeightUnit), ToKilograms(in.Weight, in.WeightUnit)
}

type Result struct {
	Height   float64
	Weight   float64
	BMI      float64
	BMIRaw   float64
	Category string
	Formula  string
}

// Evaluate runs normalization, calculation, classification and formula
// rendering. The category is chosen by the rounded BMI.
func Evaluate(in Input) Result {
	heightM, weightKg := in.Normalize()
	rounded, raw := Calculate(heightM, weightKg)
	return Result{
		Height:   in.Height,
		Weight:   in.Weight,
		BMI:      rounded,
		BMIRaw:   raw,
		Category: Categorize(rounded),
		Formula:  Formula(raw, heightM, weightKg),
	}
}

// Calculate returns weightKg / heightM² rounded to two decimals along with the raw value.
func Calculate(heightM, weightKg float64) (rounded, raw float64) {
	raw = weightKg / (heightM * heightM)
	return Round(raw, Precision), raw
}

// Round rounds v to the given number of decimal places, resolving exact
// ties to even, the way the decimal representation of v dictates.
func Round(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Categorize maps bmi to a name from category.Standard.
func Categorize(bmi float64) string {
	c, ok := category.Classify(category.Standard(), bmi)
	if !ok {
		// unreachable for the standard table, it covers every non-NaN value
		return ""
	}
	return c.Name
}

// Formula renders "<weight> kg / (<height> m) ^ 2 = <raw>".
func Formula(raw, heightM, weightKg float64) string {
	return fmt.Sprintf("%s kg / (%s m) ^ 2 = %s", FormatFloat(weightKg), FormatFloat(heightM), FormatFloat(raw))
}

// FormatFloat renders v as the shortest round-trip decimal. Whole numbers
// keep a trailing ".0"; exponent notation is used below 1e-4 and from 1e16 on.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && v != 0 && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
