package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type LineItemHandler struct {
	lineItemService service.LineItemService
}

func NewLineItemHandler(lineItemService service.LineItemService) *LineItemHandler {
	return &LineItemHandler{lineItemService: lineItemService}
}

func (h *LineItemHandler) RegisterRoutes(router *gin.RouterGroup) {
	items := router.Group("/api/purchase-items")
	{
		items.POST("", h.Create)
		items.GET("", h.List)
		items.PUT("/:id", h.Update)
		items.DELETE("/:id", h.Delete)
	}
}

// Create attaches a line item to a mutable requisition
// @Summary      Add line item
// @Tags         purchase-items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.AddLineItemRequest  true  "Line item"
// @Success      201  {object}  response.Response{data=model.LineItem}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-items [post]
func (h *LineItemHandler) Create(c *gin.Context) {
	var req service.AddLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	item, err := h.lineItemService.Add(c.Request.Context(), middleware.Scope(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// List returns the items of one requisition with their totals
// @Summary      List line items
// @Tags         purchase-items
// @Security     BearerAuth
// @Produce      json
// @Param        pr_number  query  string  true  "Requisition PR number"
// @Success      200  {object}  response.Response{data=service.LineItemListResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-items [get]
func (h *LineItemHandler) List(c *gin.Context) {
	res, err := h.lineItemService.List(c.Request.Context(), middleware.Scope(c), c.Query("pr_number"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Update line item
// @Tags         purchase-items
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                         true  "Line item ID"
// @Param        payload  body  service.UpdateLineItemRequest  true  "Fields to change"
// @Success      200  {object}  response.Response{data=model.LineItem}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-items/{id} [put]
func (h *LineItemHandler) Update(c *gin.Context) {
	var req service.UpdateLineItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	item, err := h.lineItemService.Update(c.Request.Context(), middleware.Scope(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// @Summary      Delete line item
// @Tags         purchase-items
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Line item ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-items/{id} [delete]
func (h *LineItemHandler) Delete(c *gin.Context) {
	if err := h.lineItemService.Remove(c.Request.Context(), middleware.Scope(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Line item deleted successfully"}))
}
