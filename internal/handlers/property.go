package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/hfenton/property_search/internal/es"
	"github.com/hfenton/property_search/internal/events"
	"github.com/hfenton/property_search/internal/logging"
	"github.com/hfenton/property_search/internal/models"
)

type PropertyHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
	ES       *elasticsearch.Client
}

type propertyRequest struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description"`
	Address     string `json:"address"     validate:"required"`
	Postcode    string `json:"postcode"`
	Price       int64  `json:"price"       validate:"required,gt=0"`
	Bedrooms    int    `json:"bedrooms"    validate:"gte=0"`
	Bathrooms   int    `json:"bathrooms"   validate:"gte=0"`
}

func (h *PropertyHandler) CreateProperty(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "property_create")

	var req propertyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	property := models.Property{
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Postcode:    req.Postcode,
		Price:       req.Price,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
	}
	if err := h.DB.WithContext(ctx).Create(&property).Error; err != nil {
		l.Error("property_create_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.indexProperty(c, &property)
	h.publishPropertyEvent(c, "property_created", &property)

	l.Info("property_created", "property_id", property.ID)
	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandler) GetProperty(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	var property models.Property
	if err := h.DB.WithContext(ctx).First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Property not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandler) GetProperties(c echo.Context) error {
	ctx := c.Request().Context()

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var properties []models.Property
	if err := h.DB.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&properties).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"page":       page,
		"limit":      limit,
		"properties": properties,
	})
}

func (h *PropertyHandler) PatchProperty(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "property_patch")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	var property models.Property
	if err := h.DB.WithContext(ctx).First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Property not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	delete(patch, "id")
	delete(patch, "created_at")

	if err := h.DB.WithContext(ctx).Model(&property).Updates(patch).Error; err != nil {
		l.Error("property_patch_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	if err := h.DB.WithContext(ctx).First(&property, property.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.indexProperty(c, &property)
	h.publishPropertyEvent(c, "property_updated", &property)

	return c.JSON(http.StatusOK, property)
}

func (h *PropertyHandler) DeleteProperty(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "property_delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}

	var property models.Property
	if err := h.DB.WithContext(ctx).First(&property, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Property not found.")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if err := h.DB.WithContext(ctx).Delete(&property).Error; err != nil {
		l.Error("property_delete_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	h.deleteFromIndex(c, property.ID)
	h.publishPropertyEvent(c, "property_deleted", &property)

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Property deleted.",
	})
}

func (h *PropertyHandler) indexProperty(c echo.Context, property *models.Property) {
	if h.ES == nil {
		return
	}

	data, err := json.Marshal(property)
	if err != nil {
		return
	}

	ctx, cancel := publishCtx(c)
	defer cancel()

	res, err := h.ES.Index(
		es.PropertyIndex,
		bytes.NewReader(data),
		h.ES.Index.WithDocumentID(fmt.Sprint(property.ID)),
		h.ES.Index.WithContext(ctx),
	)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("es index error", "error", err)
		return
	}
	res.Body.Close()
}

func (h *PropertyHandler) deleteFromIndex(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}

	ctx, cancel := publishCtx(c)
	defer cancel()

	res, err := h.ES.Delete(
		es.PropertyIndex,
		fmt.Sprint(id),
		h.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("es delete error", "error", err)
		return
	}
	res.Body.Close()
}

func (h *PropertyHandler) publishPropertyEvent(c echo.Context, eventType string, property *models.Property) {
	event := map[string]any{
		"type":        eventType,
		"property_id": property.ID,
		"title":       property.Title,
		"price":       property.Price,
	}

	ctx, cancel := publishCtx(c)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, events.TopicPropertyEvents, fmt.Sprint(property.ID), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}
