package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type BudgetHandler struct {
	budgetService service.BudgetService
}

func NewBudgetHandler(budgetService service.BudgetService) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService}
}

func (h *BudgetHandler) RegisterRoutes(router *gin.RouterGroup) {
	budgets := router.Group("/api/budgets")
	{
		budgets.GET("", h.List)
		budgets.GET("/:id", h.Get)
		budgets.POST("", middleware.RequireRole(service.RoleApprover, service.RoleAdmin), h.Allocate)
		budgets.DELETE("/:id", middleware.RequireRole(service.RoleAdmin), h.Delete)
	}
}

// Allocate creates a budget whose whole amount starts as balance
// @Summary      Allocate budget
// @Tags         budgets
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.AllocateBudgetRequest  true  "Budget"
// @Success      201  {object}  response.Response{data=service.BudgetResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/budgets [post]
func (h *BudgetHandler) Allocate(c *gin.Context) {
	var req service.AllocateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	budget, err := h.budgetService.Allocate(c.Request.Context(), middleware.Scope(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, budget))
}

// @Summary      List budgets
// @Tags         budgets
// @Security     BearerAuth
// @Produce      json
// @Param        page      query  int  false  "Page number (default: 1)"
// @Param        pageSize  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.Response{data=response.Page}
// @Router       /api/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	page, err := h.budgetService.List(c.Request.Context(), middleware.Scope(c), pagination.Parse(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, page))
}

// Get returns the ledger triple, amount used and utilization metrics
// @Summary      Get budget
// @Tags         budgets
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Budget ID"
// @Success      200  {object}  response.Response{data=service.BudgetResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/budgets/{id} [get]
func (h *BudgetHandler) Get(c *gin.Context) {
	budget, err := h.budgetService.Get(c.Request.Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, budget))
}

// @Summary      Delete budget
// @Tags         budgets
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Budget ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	if err := h.budgetService.Delete(c.Request.Context(), middleware.Scope(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Budget deleted successfully"}))
}
