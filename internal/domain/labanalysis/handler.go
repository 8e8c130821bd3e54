package labanalysis

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/KyaptainJoyboy/Galpal/internal/domain/interpretation"
	"github.com/KyaptainJoyboy/Galpal/internal/domain/patient"
	"github.com/KyaptainJoyboy/Galpal/internal/platform/auth"
	"github.com/KyaptainJoyboy/Galpal/pkg/pagination"
)

// Handler provides HTTP handlers for analyses and stateless evaluation.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the analysis routes on api.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleLabTech, auth.RoleViewer))
	read.GET("/patients/:id/analyses", h.ListPatientAnalyses)
	read.GET("/patients/:id/conditions", h.ConditionHistory)
	read.GET("/analyses", h.ListAnalyses)
	read.GET("/analyses/:id", h.GetAnalysis)
	read.GET("/analyses/:id/report", h.GetReport)
	read.GET("/reference-ranges", h.ListReferenceRanges)
	read.GET("/reference-ranges/:fluid", h.GetReferenceRanges)

	write := api.Group("", auth.RequireRole(auth.RoleClinician, auth.RoleLabTech))
	write.POST("/patients/:id/analyses", h.Analyze)
	write.POST("/evaluate", h.Evaluate)
	write.DELETE("/analyses/:id", h.DeleteAnalysis)
}

func (h *Handler) Analyze(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	var sample interpretation.Sample
	if err := c.Bind(&sample); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Analyze(c.Request().Context(), patientID, sample)
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusCreated, a)
}

// Evaluate runs the engine over a sample that carries its own patient
// sex and age. Nothing is stored.
func (h *Handler) Evaluate(c echo.Context) error {
	var sample interpretation.Sample
	if err := c.Bind(&sample); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ev, err := h.svc.Evaluate(c.Request().Context(), sample)
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, ev)
}

func (h *Handler) GetAnalysis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAnalysis(c.Request().Context(), id)
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAnalysis(c.Request().Context(), id)
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, interpretation.NewReport(a.Result(), a.Conditions))
}

func (h *Handler) ListAnalyses(c echo.Context) error {
	var patientID uuid.UUID
	if v := c.QueryParam("patient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		patientID = id
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAnalyses(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(c, items, total, pg))
}

func (h *Handler) ListPatientAnalyses(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatientAnalyses(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(c, items, total, pg))
}

func (h *Handler) ConditionHistory(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ConditionHistory(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return analysisError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(c, items, total, pg))
}

func (h *Handler) DeleteAnalysis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAnalysis(c.Request().Context(), id); err != nil {
		return analysisError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListReferenceRanges(c echo.Context) error {
	fluids := interpretation.ReferenceFluids()
	out := make(map[string]map[string]interpretation.Range, len(fluids))
	for _, f := range fluids {
		out[f], _ = interpretation.ReferenceRanges(f)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetReferenceRanges(c echo.Context) error {
	ranges, ok := interpretation.ReferenceRanges(c.Param("fluid"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no reference ranges for fluid type")
	}
	return c.JSON(http.StatusOK, ranges)
}

func analysisError(err error) error {
	switch {
	case errors.Is(err, interpretation.ErrUnsupportedFluidType), errors.Is(err, ErrInvalidSample):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "analysis timed out")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
