package company

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/apierror"
	"github.com/caretrack/caretrack/internal/platform/auth"
	"github.com/caretrack/caretrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("", auth.RequireAdmin())
	admin.GET("/companies", h.ListCompanies)
	admin.GET("/companies/:id", h.GetCompany)
	admin.POST("/companies", h.CreateCompany)
	admin.PUT("/companies/:id", h.UpdateCompany)
	admin.DELETE("/companies/:id", h.DeleteCompany)

	api.GET("/segments", h.ListSegments)
	api.GET("/segments/:id", h.GetSegment)
	admin.POST("/segments", h.CreateSegment)
	admin.PUT("/segments/:id", h.UpdateSegment)
	admin.DELETE("/segments/:id", h.DeleteSegment)

	api.GET("/user/segments", h.UserSegments)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(apierror.CodeValidation, "invalid id")
	}
	return id, nil
}

func (h *Handler) CreateCompany(c echo.Context) error {
	var company Company
	if err := c.Bind(&company); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	if err := h.svc.CreateCompany(c.Request().Context(), &company); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, company)
}

func (h *Handler) GetCompany(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	company, err := h.svc.GetCompany(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

func (h *Handler) ListCompanies(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCompanies(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateCompany(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var company Company
	if err := c.Bind(&company); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	company.ID = id
	if err := h.svc.UpdateCompany(c.Request().Context(), &company); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, company)
}

func (h *Handler) DeleteCompany(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCompany(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateSegment(c echo.Context) error {
	var seg Segment
	if err := c.Bind(&seg); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	if err := h.svc.CreateSegment(c.Request().Context(), &seg); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, seg)
}

func (h *Handler) GetSegment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	seg, err := h.svc.GetSegment(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, seg)
}

func (h *Handler) ListSegments(c echo.Context) error {
	var companyID *int64
	if raw := c.QueryParam("companyId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apierror.BadRequest(apierror.CodeValidation, "invalid companyId")
		}
		companyID = &id
	}
	items, err := h.svc.ListSegments(c.Request().Context(), companyID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) UpdateSegment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var seg Segment
	if err := c.Bind(&seg); err != nil {
		return apierror.BadRequest(apierror.CodeValidation, "invalid request body")
	}
	seg.ID = id
	if err := h.svc.UpdateSegment(c.Request().Context(), &seg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, seg)
}

func (h *Handler) DeleteSegment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteSegment(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UserSegments(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	items, err := h.svc.UserSegments(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}
