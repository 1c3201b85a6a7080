package events

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medislot/medislot/internal/platform/auth"
	"github.com/medislot/medislot/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/events", h.ListEvents)
	api.GET("/events/:id", h.GetEvent)

	manage := api.Group("", auth.RequireRole("center_admin"))
	manage.POST("/events", h.CreateEvent)
	manage.PUT("/events/:id", h.UpdateEvent)
	manage.GET("/events/:id/registrations", h.ListEventRegistrations)
	manage.PATCH("/registrations/:id/status", h.ChangeStatus)

	api.DELETE("/events/:id", h.DeleteEvent, auth.RequireRole("admin"))

	api.POST("/events/:id/registrations", h.Register)
	api.GET("/registrations", h.ListMyRegistrations)
	api.GET("/registrations/:id", h.GetRegistration)
	api.DELETE("/registrations/:id", h.DeleteRegistration)
}

// httpError maps domain failures onto transport statuses. Anything the domain
// does not name is treated as a transient storage failure the caller may retry.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidReference):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrDuplicateRegistration):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrCapacityFull), errors.Is(err, ErrCapacityViolation):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrInvalidFilter):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "temporarily unavailable")
	}
}

// -- Events catalog --

func (h *Handler) CreateEvent(c echo.Context) error {
	var e Event
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if uid := auth.UserIDFromContext(c.Request().Context()); uid != uuid.Nil {
		e.CreatedBy = &uid
	}
	if err := h.svc.CreateEvent(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEvents(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	if p := c.QueryParam("center_id"); p != "" {
		params["center"] = p
	}
	if p := c.QueryParam("type"); p != "" {
		params["type"] = p
	}
	if p := c.QueryParam("from"); p != "" {
		params["from"] = p
	}
	items, total, err := h.svc.ListEvents(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var e Event
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = id
	if err := h.svc.UpdateEvent(c.Request().Context(), &e); err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEvent(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteEvent(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Registrations --

type registerRequest struct {
	RegistrationDetails
	// PatientID lets center staff register on a patient's behalf. Patients
	// always register themselves.
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}

func (h *Handler) Register(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PatientName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "patient_name is required")
	}

	ctx := c.Request().Context()
	patientID := auth.UserIDFromContext(ctx)
	if patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	role := auth.RoleFromContext(ctx)
	if req.PatientID != nil {
		if role != "admin" && role != "center_admin" {
			return echo.NewHTTPError(http.StatusForbidden, "cannot register another patient")
		}
		patientID = *req.PatientID
	}

	reg, err := h.svc.Register(ctx, eventID, patientID, req.RegistrationDetails)
	if errors.Is(err, ErrDuplicateRegistration) && reg != nil {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":        err.Error(),
			"registration": reg,
		})
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, reg)
}

func (h *Handler) GetRegistration(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	reg, err := h.svc.GetRegistration(ctx, id)
	if err != nil {
		return httpError(err)
	}
	if err := h.authorizeOwner(ctx, reg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reg)
}

func (h *Handler) ListMyRegistrations(c echo.Context) error {
	ctx := c.Request().Context()
	patientID := auth.UserIDFromContext(ctx)
	if patientID == uuid.Nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(ctx, patientID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListEventRegistrations(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}
	pg := pagination.FromContext(c)
	status := c.QueryParam("status")
	items, total, err := h.svc.ListByEvent(c.Request().Context(), eventID, status, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	reg, err := h.svc.ChangeStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, reg)
}

func (h *Handler) DeleteRegistration(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	reg, err := h.svc.GetRegistration(ctx, id)
	if err != nil {
		return httpError(err)
	}
	if err := h.authorizeOwner(ctx, reg); err != nil {
		return err
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// authorizeOwner lets patients touch only their own registrations. Center
// staff and admins see everything.
func (h *Handler) authorizeOwner(ctx context.Context, reg *Registration) error {
	role := auth.RoleFromContext(ctx)
	if role == "admin" || role == "center_admin" {
		return nil
	}
	if auth.UserIDFromContext(ctx) != reg.PatientID {
		return echo.NewHTTPError(http.StatusForbidden, "not your registration")
	}
	return nil
}
