package scheduling

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinic/clinic/internal/domain/directory"
	"github.com/clinic/clinic/internal/platform/auth"
)

type Handler struct {
	svc     *Service
	sweeper *Sweeper
}

func NewHandler(svc *Service, sweeper *Sweeper) *Handler {
	return &Handler{svc: svc, sweeper: sweeper}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "doctor", "patient", "registrar"))
	readGroup.GET("/appointments/patient/:id", h.ListByPatient)
	readGroup.GET("/appointments/doctor/:id", h.ListByDoctor)
	readGroup.GET("/availability", h.Availability)

	writeGroup := api.Group("", auth.RequireRole("admin", "patient", "registrar"))
	writeGroup.POST("/appointments/book", h.Book)
	writeGroup.PATCH("/appointments/:id", h.Update)
	writeGroup.POST("/appointments/:id/cancel", h.Cancel)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/appointments/sweep", h.Sweep)
}

type bookRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	FollowUp  bool      `json:"follow_up"`
}

type updateRequest struct {
	Date     *string `json:"date"`
	Time     *string `json:"time"`
	FollowUp *bool   `json:"follow_up"`
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// statusFor maps domain sentinels onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, directory.ErrPatientNotFound),
		errors.Is(err, directory.ErrDoctorNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateBooking),
		errors.Is(err, ErrDuplicateWaiting),
		errors.Is(err, ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, ErrPastDateTime),
		errors.Is(err, ErrOutsideHours),
		errors.Is(err, ErrLunchConflict),
		errors.Is(err, ErrFollowUpWindowOnly),
		errors.Is(err, ErrNotFollowUpWindow),
		errors.Is(err, directory.ErrRoleMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func domainError(err error) *echo.HTTPError {
	return echo.NewHTTPError(statusFor(err), err.Error())
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientID == uuid.Nil || req.DoctorID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_id and doctor_id are required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	start, err := ParseTimeOfDay(req.Time)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid time, expected HH:MM")
	}
	outcome, err := h.svc.BookOrWait(c.Request().Context(), req.PatientID, req.DoctorID, start.At(date), req.FollowUp)
	if err != nil {
		return domainError(err)
	}
	status := http.StatusCreated
	if !outcome.Booked {
		status = http.StatusAccepted
	}
	return c.JSON(status, outcome)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var upd UpdateRequest
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		upd.Date = &date
	}
	if req.Time != nil {
		start, err := ParseTimeOfDay(*req.Time)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid time, expected HH:MM")
		}
		upd.Time = &start
	}
	upd.FollowUp = req.FollowUp
	appt, err := h.svc.Update(c.Request().Context(), id, upd)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appts, err := h.svc.ListByPatient(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appts, err := h.svc.ListByDoctor(c.Request().Context(), id)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, appts)
}

func (h *Handler) Availability(c echo.Context) error {
	doctorID, err := uuid.Parse(c.QueryParam("doctor_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	avail, err := h.svc.Availability(c.Request().Context(), doctorID, date)
	if err != nil {
		return domainError(err)
	}
	return c.JSON(http.StatusOK, avail)
}

func (h *Handler) Sweep(c echo.Context) error {
	swept, err := h.sweeper.SweepOverdue(c.Request().Context())
	if err != nil {
		if errors.Is(err, ErrSweepInProgress) {
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"swept": swept})
}
