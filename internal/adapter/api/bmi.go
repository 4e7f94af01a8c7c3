package api

import (
	"errors"
	bmiservice "github.com/burenotti/go_bmi_backend/internal/app/bmi"
	"github.com/burenotti/go_bmi_backend/internal/domain/bmi"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"net/http"
)

func (s *Server) MountBMI(root *echo.Group) {
	bmiRoutes := root.Group("/bmi")

	bmiRoutes.POST("", s.CalculateBMI)
	bmiRoutes.GET("/categories", s.StaticCategories)
}

// Unit tokens must be present but may hold any string, "" included.
type bmiReq struct {
	Height     float64 `json:"height" validate:"required,gt=0"`
	HeightUnit *string `json:"height_unit" validate:"required"`
	Weight     float64 `json:"weight" validate:"required,gt=0"`
	WeightUnit *string `json:"weight_unit" validate:"required"`
}

func (r *bmiReq) input() bmi.Input {
	return bmi.Input{
		Height:     r.Height,
		HeightUnit: bmi.HeightUnit(lo.FromPtr(r.HeightUnit)),
		Weight:     r.Weight,
		WeightUnit: bmi.WeightUnit(lo.FromPtr(r.WeightUnit)),
	}
}

type bmiResp struct {
	Height   float64 `json:"height"`
	Weight   float64 `json:"weight"`
	BMI      float64 `json:"bmi"`
	BMIRaw   float64 `json:"bmi_raw"`
	Category string  `json:"category"`
	Formula  string  `json:"formula"`
}

func (s *Server) CalculateBMI(c echo.Context) error {
	var req bmiReq
	if err := s.bind(c, &req); err != nil {
		return bindError(c, err)
	}

	res, err := s.bmiService.Calculate(req.input())
	if err != nil {
		if errors.Is(err, bmiservice.ErrUnknownUnit) {
			return JsonError(c, http.StatusUnprocessableEntity, err)
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, bmiResp{
		Height:   res.Height,
		Weight:   res.Weight,
		BMI:      res.BMI,
		BMIRaw:   res.BMIRaw,
		Category: res.Category,
		Formula:  res.Formula,
	})
}

type Category struct {
	ID       int64    `json:"id,omitempty"`
	Name     string   `json:"name"`
	MinValue *float64 `json:"min_value"`
	MaxValue *float64 `json:"max_value"`
}

type categoriesResp struct {
	Categories []Category `json:"categories"`
}

func toCategory(c category.Category, _ int) Category {
	return Category{
		ID:       c.ID,
		Name:     c.Name,
		MinValue: c.MinValue,
		MaxValue: c.MaxValue,
	}
}

// toStaticCategory leaves the id out: the built-in table has no rows to address.
func toStaticCategory(c category.Category, i int) Category {
	res := toCategory(c, i)
	res.ID = 0
	return res
}

func (s *Server) StaticCategories(c echo.Context) error {
	return c.JSON(http.StatusOK, categoriesResp{
		Categories: lo.Map(s.bmiService.Categories(), toStaticCategory),
	})
}
