package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"ChartCrime/internal/domain/models"
	domrepo "ChartCrime/internal/domain/repository"
	xhttp "ChartCrime/pkg/http"
	applogger "ChartCrime/pkg/logger"
)

// RotationHandler serves the saved rotation and rankings to display clients.
type RotationHandler struct {
	store domrepo.ResultStore
	hub   *Hub
	l     *applogger.Logger
}

func NewRotationHandler(store domrepo.ResultStore, hub *Hub, l *applogger.Logger) *RotationHandler {
	if l == nil {
		l = applogger.NewNop()
	}
	return &RotationHandler{store: store, hub: hub, l: l.With("component", "api")}
}

func (h *RotationHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/rotation", h.Rotation)
	g.GET("/correlations", h.Correlations)
	g.GET("/health", h.Health)
	if h.hub != nil {
		e.GET("/ws/rotation", h.hub.ServeWS)
	}
}

// Rotation returns the curated {id, title} list in display order.
func (h *RotationHandler) Rotation(c echo.Context) error {
	req := &models.RotationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	items, err := h.store.LoadRotation(c.Request().Context())
	if err != nil {
		h.l.Error("load rotation error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("rotation unavailable").WithError(err))
	}
	total := len(items)
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.ListResponse(c, nonNilItems(items), int64(total))
}

// Correlations returns ranked results, optionally restricted to one
// curated category.
func (h *RotationHandler) Correlations(c echo.Context) error {
	req := &models.CorrelationsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	var rows []models.CuratedEntry
	if req.Category != "" {
		detail, err := h.store.LoadDetail(ctx)
		if err != nil {
			h.l.Error("load detail error", applogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("curated detail unavailable").WithError(err))
		}
		for _, e := range detail {
			if string(e.Category) == req.Category && e.AbsR >= req.MinAbsR {
				rows = append(rows, e)
			}
		}
	} else {
		results, err := h.store.LoadResults(ctx)
		if err != nil {
			h.l.Error("load results error", applogger.Error(err))
			return xhttp.AppErrorResponse(c, xhttp.InternalError("results unavailable").WithError(err))
		}
		for _, r := range results {
			if r.AbsR >= req.MinAbsR {
				rows = append(rows, models.CuratedEntry{CorrelationResult: r})
			}
		}
	}

	total := len(rows)
	if len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}
	if rows == nil {
		rows = []models.CuratedEntry{}
	}
	return xhttp.ListResponse(c, rows, int64(total))
}

func (h *RotationHandler) Health(c echo.Context) error {
	body := map[string]interface{}{"status": "ok"}
	if h.hub != nil {
		body["ws_clients"] = h.hub.Clients()
	}
	return c.JSON(http.StatusOK, body)
}

func nonNilItems(in []models.RotationItem) []models.RotationItem {
	if in == nil {
		return []models.RotationItem{}
	}
	return in
}
