package labresults

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medislot/medislot/internal/platform/auth"
	"github.com/medislot/medislot/internal/platform/blobstore"
	"github.com/medislot/medislot/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/lab-reports", h.List)
	api.GET("/lab-reports/:id", h.Get)
	api.GET("/lab-reports/:id/download", h.Download)

	manage := api.Group("", auth.RequireRole("center_admin"))
	manage.POST("/lab-reports", h.Upload)
	manage.DELETE("/lab-reports/:id", h.Delete)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidReference):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, blobstore.ErrBlobTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrInvalidFilter):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusServiceUnavailable, "temporarily unavailable")
	}
}

func (h *Handler) Upload(c echo.Context) error {
	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "valid patient_id is required")
	}
	testName := c.FormValue("test_name")
	if testName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "test_name is required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unable to read file")
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")

	report, err := h.svc.Upload(c.Request().Context(), UploadRequest{
		PatientID:   patientID,
		TestName:    testName,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Note:        c.FormValue("note"),
		Content:     src,
		UploadedBy:  auth.UserIDFromContext(c.Request().Context()),
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, report)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	pg := pagination.FromContext(c)

	params := map[string]string{}
	if p := c.QueryParam("patient_id"); p != "" {
		params["patient"] = p
	}
	if q := c.QueryParam("q"); q != "" {
		params["q"] = q
	}
	if f := c.QueryParam("from"); f != "" {
		params["from"] = f
	}
	if t := c.QueryParam("to"); t != "" {
		params["to"] = t
	}

	// Patients only ever see their own reports, whatever they ask for.
	if auth.RoleFromContext(ctx) == "patient" {
		params["patient"] = auth.UserIDFromContext(ctx).String()
	}

	reports, total, err := h.svc.List(ctx, params, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(reports, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	report, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if err := h.authorizeOwner(c, report); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	report, rc, err := h.svc.Download(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	defer rc.Close()
	if err := h.authorizeOwner(c, report); err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, report.FileName))
	c.Response().Header().Set(echo.HeaderContentLength, fmt.Sprintf("%d", report.SizeBytes))
	return c.Stream(http.StatusOK, report.ContentType, rc)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// authorizeOwner allows staff through and limits patients to their own
// reports. Misses report 404 rather than 403 so report ids are not probeable.
func (h *Handler) authorizeOwner(c echo.Context, report *LabReport) error {
	ctx := c.Request().Context()
	role := auth.RoleFromContext(ctx)
	if role == "admin" || role == "center_admin" {
		return nil
	}
	if auth.UserIDFromContext(ctx) == report.PatientID {
		return nil
	}
	return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
}
