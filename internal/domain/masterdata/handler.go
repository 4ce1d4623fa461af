package masterdata

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/master-data", h.List)
	api.GET("/master-data/verify", h.Verify)
	api.GET("/master-data/:id", h.Get)
	api.POST("/master-data", h.Create)
	api.PUT("/master-data/:id", h.Update)
	api.DELETE("/master-data/:id", h.Delete)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(apierror.CodeValidation, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var md MasterData
	if err := c.Bind(&md); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &md); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, md)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	md, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, md)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Verify(c echo.Context) error {
	var segmentID *int64
	if raw := c.QueryParam("segmentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apierror.BadRequest(apierror.CodeValidation, "invalid segmentId")
		}
		segmentID = &id
	}
	result, err := h.svc.Verify(c.Request().Context(),
		c.QueryParam("serviceCategory"), c.QueryParam("serviceType"), c.QueryParam("serviceProvider"), segmentID)
	if err != nil {
		return err
	}
	if !result.Exists {
		return c.JSON(http.StatusNotFound, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var md MasterData
	if err := c.Bind(&md); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	md.ID = id
	updated, err := h.svc.Update(c.Request().Context(), &md)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
