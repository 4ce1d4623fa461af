package careservice

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
	api.GET("/client-services", h.List)
	api.GET("/client-services/:id", h.Get)
	api.POST("/client-services", h.Create)
	api.PUT("/client-services/:id", h.Update)
	api.PATCH("/client-services/:id/status", h.UpdateStatus)

	api.POST("/service-case-notes", h.CreateCaseNote)
	api.GET("/client-services/:id/case-notes", h.ListCaseNotes)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(apierror.CodeValidation, "invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var cs ClientService
	if err := c.Bind(&cs); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	if err := h.svc.Create(c.Request().Context(), &cs); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cs)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	cs, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	var clientID *int64
	if raw := c.QueryParam("clientId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apierror.BadRequest(apierror.CodeValidation, "invalid clientId")
		}
		clientID = &id
	}

	items, total, err := h.svc.List(c.Request().Context(), clientID, c.QueryParam("status"), pg.Limit, pg.Offset)
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
	var cs ClientService
	if err := c.Bind(&cs); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	cs.ID = id
	updated, err := h.svc.Update(c.Request().Context(), &cs)
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
	cs, err := h.svc.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}

func (h *Handler) CreateCaseNote(c echo.Context) error {
	var req createCaseNoteRequest
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	if req.ClientServiceID <= 0 {
		return apierror.Validation("clientServiceId is required", nil)
	}
	note, err := h.svc.CreateCaseNote(c.Request().Context(), req.ClientServiceID, req.Note, req.DocumentIDs)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *Handler) ListCaseNotes(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	notes, err := h.svc.ListCaseNotes(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}
