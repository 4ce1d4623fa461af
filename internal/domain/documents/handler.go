package documents

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/caretrack/caretrack/internal/platform/apierror"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/documents", h.List)
	api.POST("/documents", h.Upload)
	api.GET("/documents/:id/download", h.Download)
	api.DELETE("/documents/:id", h.Delete)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierror.BadRequest(apierror.CodeValidation, "invalid id")
	}
	return id, nil
}

func (h *Handler) Upload(c echo.Context) error {
	clientID, err := strconv.ParseInt(c.FormValue("clientId"), 10, 64)
	if err != nil || clientID <= 0 {
		return apierror.Validation("clientId is required", map[string]string{"clientId": "required"})
	}

	var segmentID *int64
	if raw := c.FormValue("segmentId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return apierror.BadRequest(apierror.CodeValidation, "invalid segmentId")
		}
		segmentID = &id
	}

	var docType *string
	if t := c.FormValue("type"); t != "" {
		docType = &t
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apierror.Validation("file is required", map[string]string{"file": "required"})
	}
	if fileHeader.Size > MaxUploadSize {
		return apierror.Validation(
			fmt.Sprintf("file exceeds the %d MB limit", MaxUploadSize/(1024*1024)), nil)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apierror.Internal("failed to read uploaded file")
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	d, err := h.svc.Upload(c.Request().Context(), UploadInput{
		ClientID:    clientID,
		Name:        c.FormValue("name"),
		Type:        docType,
		FileName:    fileHeader.Filename,
		ContentType: contentType,
		Size:        fileHeader.Size,
		SegmentID:   segmentID,
		Content:     src,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) List(c echo.Context) error {
	clientID, err := strconv.ParseInt(c.QueryParam("clientId"), 10, 64)
	if err != nil || clientID <= 0 {
		return apierror.Validation("clientId query parameter is required", nil)
	}
	items, err := h.svc.ListByClient(c.Request().Context(), clientID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Download(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, rc, err := h.svc.Download(c.Request().Context(), id)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, d.FileName))
	c.Response().Header().Set(echo.HeaderContentType, d.ContentType)
	c.Response().WriteHeader(http.StatusOK)
	_, err = io.Copy(c.Response(), rc)
	return err
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
