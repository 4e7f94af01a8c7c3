package api

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_bmi_backend/internal/domain/category"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"net/http"
)

func (s *Server) MountCategories(root *echo.Group) {
	loginRequired := LoginRequired(s.authorizer)

	categoryRoutes := root.Group("/categories")

	categoryRoutes.GET("", s.ListCategories)
	categoryRoutes.GET("/lookup", s.LookupCategory)
	categoryRoutes.GET("/:id", s.GetCategory)
	categoryRoutes.POST("", s.CreateCategory, loginRequired)
	categoryRoutes.PUT("/:id", s.UpdateCategory, loginRequired)
	categoryRoutes.DELETE("/:id", s.DeleteCategory, loginRequired)
}

func (s *Server) ListCategories(c echo.Context) error {
	cats, err := s.categoryService.List(c.Request().Context(), s.categoriesUoW())
	if err != nil {
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, categoriesResp{
		Categories: lo.Map(cats, toCategory),
	})
}

func (s *Server) GetCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return bindError(c, err)
	}

	cat, err := s.categoryService.GetByID(c.Request().Context(), s.categoriesUoW(), id)
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			return JsonError(c, http.StatusNotFound, fmt.Sprintf("Category with id %d not found", id))
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, toCategory(*cat, 0))
}

func (s *Server) LookupCategory(c echo.Context) error {
	var value float64
	if err := echo.QueryParamsBinder(c).MustFloat64("bmi", &value).BindError(); err != nil {
		return JsonError(c, http.StatusUnprocessableEntity, "bmi: must be a number")
	}

	cat, err := s.categoryService.GetByBMI(c.Request().Context(), s.categoriesUoW(), value)
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			return JsonError(c, http.StatusNotFound, fmt.Sprintf("Category for bmi %v not found", value))
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, toCategory(*cat, 0))
}

type categoryReq struct {
	Name     string   `json:"name" validate:"required,max=100"`
	MinValue *float64 `json:"min_value"`
	MaxValue *float64 `json:"max_value"`
}

func (s *Server) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := s.bind(c, &req); err != nil {
		return bindError(c, err)
	}

	cat, err := s.categoryService.Create(c.Request().Context(), s.categoriesUoW(), req.Name, req.MinValue, req.MaxValue)
	if err != nil {
		return s.categoryMutationError(c, err)
	}

	return c.JSON(http.StatusCreated, toCategory(*cat, 0))
}

func (s *Server) UpdateCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return bindError(c, err)
	}

	var req categoryReq
	if err := s.bind(c, &req); err != nil {
		return bindError(c, err)
	}

	cat, err := s.categoryService.Update(c.Request().Context(), s.categoriesUoW(), id, req.Name, req.MinValue, req.MaxValue)
	if err != nil {
		if errors.Is(err, category.ErrCategoryNotFound) {
			return JsonError(c, http.StatusNotFound, fmt.Sprintf("Category with id %d not found", id))
		}
		return s.categoryMutationError(c, err)
	}

	return c.JSON(http.StatusOK, toCategory(*cat, 0))
}

func (s *Server) DeleteCategory(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return bindError(c, err)
	}

	if err := s.categoryService.Delete(c.Request().Context(), s.categoriesUoW(), id); err != nil {
		switch {
		case errors.Is(err, category.ErrCategoryNotFound):
			return JsonError(c, http.StatusNotFound, fmt.Sprintf("Category with id %d not found", id))
		case errors.Is(err, category.ErrCategoryInUse):
			return JsonError(c, http.StatusConflict, "Category is referenced by measurements")
		}
		return s.internalError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) categoryMutationError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, category.ErrCategoryOverlaps):
		return JsonError(c, http.StatusConflict, category.ErrCategoryOverlaps)
	case errors.Is(err, category.ErrCategoryExists):
		return JsonError(c, http.StatusConflict, "Category with this name already exists")
	case errors.Is(err, category.ErrInvalidRange):
		return JsonError(c, http.StatusUnprocessableEntity, category.ErrInvalidRange)
	}
	return s.internalError(c, err)
}
