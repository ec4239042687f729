package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type OptionHandler struct {
	optionService service.OptionService
}

func NewOptionHandler(optionService service.OptionService) *OptionHandler {
	return &OptionHandler{optionService: optionService}
}

func (h *OptionHandler) RegisterRoutes(router *gin.RouterGroup) {
	options := router.Group("/api/options")
	{
		options.GET("/:kind", h.List)
		options.POST("/:kind", middleware.RequireRole(service.RoleAdmin), h.Create)
	}
}

// List returns select options for branches, departments, categories or suppliers
// @Summary      List options
// @Tags         options
// @Security     BearerAuth
// @Produce      json
// @Param        kind    path   string  true   "branch, department, category or supplier"
// @Param        search  query  string  false  "Name filter"
// @Success      200  {object}  response.Response{data=[]model.Option}
// @Failure      400  {object}  response.Response
// @Router       /api/options/{kind} [get]
func (h *OptionHandler) List(c *gin.Context) {
	options, err := h.optionService.List(c.Request.Context(), middleware.Scope(c), c.Param("kind"), c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, options))
}

// @Summary      Create option
// @Tags         options
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        kind     path  string                      true  "branch, department, category or supplier"
// @Param        payload  body  service.CreateOptionRequest  true  "Reference entity"
// @Success      201  {object}  response.Response{data=model.Option}
// @Failure      400  {object}  response.Response
// @Router       /api/options/{kind} [post]
func (h *OptionHandler) Create(c *gin.Context) {
	var req service.CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	option, err := h.optionService.Create(c.Request.Context(), middleware.Scope(c), c.Param("kind"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, option))
}
