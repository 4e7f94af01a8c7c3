package category

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category is referenced by measurements")
	ErrInvalidRange     = errors.New("invalid category range")
	ErrCategoryOverlaps = fmt.Errorf("%w: overlaps another category", ErrInvalidRange)
	ErrInvalidPartition = errors.New("categories do not partition the bmi scale")
)

// Category is a named half-open BMI range [MinValue, MaxValue).
// A nil bound is open-ended.
type Category struct {
	ID       int64    `diff:"-"`
	Name     string   `diff:"name"`
	MinValue *float64 `diff:"min_value"`
	MaxValue *float64 `diff:"max_value"`
}

func New(name string, minValue, maxValue *float64) (*Category, error) {
	c := &Category{
		Name:     name,
		MinValue: minValue,
		MaxValue: maxValue,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidRange)
	}
	if c.MinValue != nil && c.MaxValue != nil && *c.MinValue >= *c.MaxValue {
		return fmt.Errorf("%w: min_value %v is not below max_value %v", ErrInvalidRange, *c.MinValue, *c.MaxValue)
	}
	return nil
}

// Contains reports whether bmi falls into the category.
// The lower bound is inclusive and the upper bound exclusive.
func (c *Category) Contains(bmi float64) bool {
	if c.MinValue != nil && bmi < *c.MinValue {
		return false
	}
	if c.MaxValue != nil && bmi >= *c.MaxValue {
		return false
	}
	return true
}

// Overlaps reports whether two categories share at least one BMI value.
func (c *Category) Overlaps(other *Category) bool {
	aboveOther := other.MaxValue != nil && c.MinValue != nil && *c.MinValue >= *other.MaxValue
	belowOther := c.MaxValue != nil && other.MinValue != nil && *c.MaxValue <= *other.MinValue
	return !aboveOther && !belowOther
}

// Sort orders categories by ascending lower bound, open lower bound first.
func Sort(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		a, b := cats[i].MinValue, cats[j].MinValue
		if a == nil {
			return b != nil
		}
		if b == nil {
			return false
		}
		return *a < *b
	})
}

// Classify returns the first category containing bmi.
// cats must be sorted in ascending order.
func Classify(cats []Category, bmi float64) (Category, bool) {
	for _, c := range cats {
		if c.Contains(bmi) {
			return c, true
		}
	}
	return Category{}, false
}

// ValidatePartition checks that sorted cats cover the whole real line without gaps or overlaps.
func ValidatePartition(cats []Category) error {
	if len(cats) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidPartition)
	}
	if cats[0].MinValue != nil {
		return fmt.Errorf("%w: %q must be open below", ErrInvalidPartition, cats[0].Name)
	}
	if last := cats[len(cats)-1]; last.MaxValue != nil {
		return fmt.Errorf("%w: %q must be open above", ErrInvalidPartition, last.Name)
	}
	for i := range cats {
		if err := cats[i].Validate(); err != nil {
			return errors.Join(ErrInvalidPartition, err)
		}
		if i == 0 {
			continue
		}
		prev, cur := cats[i-1], cats[i]
		if prev.MaxValue == nil || cur.MinValue == nil || *prev.MaxValue != *cur.MinValue {
			return fmt.Errorf("%w: %q does not start where %q ends", ErrInvalidPartition, cur.Name, prev.Name)
		}
	}
	return nil
}

func bound(v float64) *float64 {
	return &v
}

// Standard returns the WHO adult BMI table in ascending order.
func Standard() []Category {
	return []Category{
		{ID: 1, Name: "Underweight", MinValue: nil, MaxValue: bound(18.5)},
		{ID: 2, Name: "Normal", MinValue: bound(18.5), MaxValue: bound(25)},
		{ID: 3, Name: "Overweight", MinValue: bound(25), MaxValue: bound(30)},
		{ID: 4, Name: "Obesity I", MinValue: bound(30), MaxValue: bound(35)},
		{ID: 5, Name: "Obesity II", MinValue: bound(35), MaxValue: bound(40)},
		{ID: 6, Name: "Obesity III", MinValue: bound(40), MaxValue: nil},
	}
}
