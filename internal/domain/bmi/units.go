package bmi

type HeightUnit string

type WeightUnit string

const (
	Meters      HeightUnit = "m"
	Centimeters HeightUnit = "cm"
	Inches      HeightUnit = "in"
	Feet        HeightUnit = "ft"

	Kilograms WeightUnit = "kg"
	Pounds    WeightUnit = "lb"
)

const (
	metersPerInch     = 0.0254
	kilogramsPerPound = 0.45359237
)

// ToMeters normalizes a height. Any unit other than m and cm is
// treated as inches, including unknown tokens.
func ToMeters(value float64, unit HeightUnit) float64 {
	switch unit {
	case Meters:
		return value
	case Centimeters:
		return value / 100.0
	default:
		return value * metersPerInch
	}
}

// ToKilograms normalizes a weight. Any unit other than kg is treated as pounds.
func ToKilograms(value float64, unit WeightUnit) float64 {
	if unit == Kilograms {
		return value
	}
	return value * kilogramsPerPound
}

func KnownHeightUnit(u HeightUnit) bool {
	switch u {
	case Meters, Centimeters, Inches, Feet:
		return true
	}
	return false
}

func KnownWeightUnit(u WeightUnit) bool {
	return u == Kilograms || u == Pounds
}
