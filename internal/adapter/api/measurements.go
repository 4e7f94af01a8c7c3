package api

import (
	"errors"
	"fmt"
	measurementservice "github.com/burenotti/go_bmi_backend/internal/app/measurement"
	"github.com/burenotti/go_bmi_backend/internal/domain/bmi"
	"github.com/burenotti/go_bmi_backend/internal/domain/measurement"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"net/http"
	"time"
)

func (s *Server) MountMeasurements(root *echo.Group) {
	loginRequired := LoginRequired(s.authorizer)

	measurementRoutes := root.Group("/measurements", loginRequired)

	measurementRoutes.POST("", s.RecordMeasurement)
	measurementRoutes.GET("", s.ListMeasurements)
	measurementRoutes.GET("/latest", s.LatestMeasurement)
	measurementRoutes.GET("/stats", s.MeasurementStats)
	measurementRoutes.GET("/:id", s.GetMeasurement)
	measurementRoutes.PATCH("/:id", s.UpdateMeasurement)
	measurementRoutes.DELETE("/:id", s.DeleteMeasurement)
}

type Measurement struct {
	MeasurementID int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	CategoryID    int64     `json:"category_id"`
	Height        float64   `json:"height"`
	HeightUnit    string    `json:"height_unit"`
	Weight        float64   `json:"weight"`
	WeightUnit    string    `json:"weight_unit"`
	HeightM       float64   `json:"height_m"`
	WeightKg      float64   `json:"weight_kg"`
	BMI           float64   `json:"bmi"`
	Notes         *string   `json:"notes"`
	RecordedAt    time.Time `json:"recorded_at"`
}

func toMeasurement(m *measurement.Measurement, _ int) Measurement {
	return Measurement{
		MeasurementID: m.MeasurementID,
		UserID:        m.UserID,
		CategoryID:    m.CategoryID,
		Height:        m.Height,
		HeightUnit:    string(m.HeightUnit),
		Weight:        m.Weight,
		WeightUnit:    string(m.WeightUnit),
		HeightM:       m.HeightM,
		WeightKg:      m.WeightKg,
		BMI:           m.BMI,
		Notes:         m.Notes,
		RecordedAt:    m.RecordedAt,
	}
}

type recordMeasurementReq struct {
	bmiReq
	Notes *string `json:"notes" validate:"omitempty,max=500"`
}

func (s *Server) RecordMeasurement(c echo.Context) error {
	var req recordMeasurementReq
	if err := s.bind(c, &req); err != nil {
		return bindError(c, err)
	}

	in := req.input()
	if err := s.bmiService.CheckUnits(in); err != nil {
		return JsonError(c, http.StatusUnprocessableEntity, err)
	}

	me := currentUser(c)
	m, err := s.measurementService.Record(c.Request().Context(), s.measurementsUoW(), me.UserID, in, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, measurementservice.ErrUncategorized):
			return JsonError(c, http.StatusConflict, "No category covers the calculated bmi")
		case errors.Is(err, measurement.ErrUserNotFound):
			return JsonError(c, http.StatusNotFound, "User not found")
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusCreated, toMeasurement(m, 0))
}

type listMeasurementsResp struct {
	Measurements []Measurement `json:"measurements"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}

func (s *Server) ListMeasurements(c echo.Context) error {
	me := currentUser(c)
	f := measurement.Filter{UserID: me.UserID}

	var (
		categoryID   int64
		since, until time.Time
	)
	b := echo.QueryParamsBinder(c).
		Int64("category_id", &categoryID).
		Time("since", &since, time.RFC3339).
		Time("until", &until, time.RFC3339).
		Int("limit", &f.Limit).
		Int("offset", &f.Offset)
	if err := b.BindError(); err != nil {
		return JsonError(c, http.StatusUnprocessableEntity, queryParamMessage(err))
	}
	if c.QueryParam("category_id") != "" {
		f.CategoryID = &categoryID
	}
	if c.QueryParam("since") != "" {
		f.Since = &since
	}
	if c.QueryParam("until") != "" {
		f.Until = &until
	}
	if f.Limit < 0 || f.Offset < 0 {
		return JsonError(c, http.StatusUnprocessableEntity, "limit and offset must not be negative")
	}
	f = f.Normalize()

	ms, err := s.measurementService.List(c.Request().Context(), s.measurementsUoW(), f)
	if err != nil {
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, listMeasurementsResp{
		Measurements: lo.Map(ms, toMeasurement),
		Limit:        f.Limit,
		Offset:       f.Offset,
	})
}

func (s *Server) LatestMeasurement(c echo.Context) error {
	me := currentUser(c)

	m, err := s.measurementService.Latest(c.Request().Context(), s.measurementsUoW(), me.UserID)
	if err != nil {
		if errors.Is(err, measurement.ErrMeasurementNotFound) {
			return JsonError(c, http.StatusNotFound, "No measurements recorded")
		}
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, toMeasurement(m, 0))
}

type statsResp struct {
	Total     int      `json:"total_measurements"`
	AvgBMI    *float64 `json:"avg_bmi"`
	MinBMI    *float64 `json:"min_bmi"`
	MaxBMI    *float64 `json:"max_bmi"`
	LatestBMI *float64 `json:"latest_bmi"`
}

func (s *Server) MeasurementStats(c echo.Context) error {
	me := currentUser(c)

	stats, err := s.measurementService.Stats(c.Request().Context(), s.measurementsUoW(), me.UserID)
	if err != nil {
		return s.internalError(c, err)
	}

	resp := statsResp{
		Total:     stats.Total,
		MinBMI:    stats.MinBMI,
		MaxBMI:    stats.MaxBMI,
		LatestBMI: stats.LatestBMI,
	}
	if stats.AvgBMI != nil {
		resp.AvgBMI = lo.ToPtr(bmi.Round(*stats.AvgBMI, bmi.Precision))
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) GetMeasurement(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return bindError(c, err)
	}
	me := currentUser(c)

	m, err := s.measurementService.GetByID(c.Request().Context(), s.measurementsUoW(), me.UserID, id)
	if err != nil {
		return s.measurementError(c, id, err)
	}

	return c.JSON(http.StatusOK, toMeasurement(m, 0))
}

type updateMeasurementReq struct {
	Notes *string `json:"notes" validate:"omitempty,max=500"`
}

func (s *Server) UpdateMeasurement(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return bindError(c, err)
	}

	var req updateMeasurementReq
	if err := s.bind(c, &req); err != nil {
		return bindError(c, err)
	}
	me := currentUser(c)

	m, err := s.measurementService.UpdateNotes(c.Request().Context(), s.measurementsUoW(), me.UserID, id, req.Notes)
	if err != nil {
		return s.measurementError(c, id, err)
	}

	return c.JSON(http.StatusOK, toMeasurement(m, 0))
}

func (s *Server) DeleteMeasurement(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return bindError(c, err)
	}
	me := currentUser(c)

	if err := s.measurementService.Delete(c.Request().Context(), s.measurementsUoW(), me.UserID, id); err != nil {
		return s.measurementError(c, id, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) measurementError(c echo.Context, id int64, err error) error {
	if errors.Is(err, measurement.ErrMeasurementNotFound) {
		return JsonError(c, http.StatusNotFound, fmt.Sprintf("Measurement with id %d not found", id))
	}
	return s.internalError(c, err)
}

func queryParamMessage(err error) string {
	var be *echo.BindingError
	if errors.As(err, &be) {
		return fmt.Sprintf("%s: invalid value", be.Field)
	}
	return "invalid query parameters"
}
