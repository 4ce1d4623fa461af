package client

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
	api.GET("/person-info", h.List)
	api.GET("/person-info/:id", h.Get)
	api.POST("/person-info", h.Create)
	api.PUT("/person-info/:id", h.Update)
	api.PATCH("/person-info/:id/status", h.UpdateStatus)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(apierror.CodeValidation, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var p PersonInfo
	if err := c.Bind(&p); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	var segmentID *int64
	if raw := c.QueryParam("segmentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apierror.BadRequest(apierror.CodeValidation, "invalid segmentId")
		}
		segmentID = &id
	}

	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), segmentID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var p PersonInfo
	if err := c.Bind(&p); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	p.ID = id
	updated, err := h.svc.Update(c.Request().Context(), &p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	p, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
