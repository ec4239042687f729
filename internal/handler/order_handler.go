package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/eligible", h.Eligible)
		orders.PATCH("/:id/approval", middleware.RequireRole(service.RoleApprover, service.RoleAdmin), h.Decide)
	}
}

// Create converts an approved requisition into a purchase order
// @Summary      Create purchase order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.ConvertRequest  true  "Conversion request"
// @Success      201  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req service.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	order, err := h.orderService.Convert(c.Request.Context(), middleware.Scope(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// @Summary      List purchase orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        status    query  string  false  "PENDING, APPROVED or REJECTED"
// @Param        page      query  int     false  "Page number (default: 1)"
// @Param        pageSize  query  int     false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=service.OrderPage}
// @Failure      400  {object}  response.Response
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	page, err := h.orderService.List(c.Request.Context(), middleware.Scope(c), c.Query("status"), pagination.Parse(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// Eligible lists approved requisitions that have no purchase order yet
// @Summary      List convertible requisitions
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.RequisitionResponse}
// @Router       /api/orders/eligible [get]
func (h *OrderHandler) Eligible(c *gin.Context) {
	reqs, err := h.orderService.Eligible(c.Request.Context(), middleware.Scope(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, reqs))
}

// @Summary      Decide purchase order
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                        true  "Purchase order ID"
// @Param        payload  body  service.OrderDecisionRequest  true  "APPROVED or REJECTED"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/approval [patch]
func (h *OrderHandler) Decide(c *gin.Context) {
	var req service.OrderDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	order, err := h.orderService.Decide(c.Request.Context(), middleware.Scope(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
