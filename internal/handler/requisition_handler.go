package handler

import (
	"net/http"

	"procurement/internal/middleware"
	"procurement/internal/service"
	"procurement/pkg/pagination"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequisitionHandler struct {
	requisitionService service.RequisitionService
	listingService     service.ListingService
}

func NewRequisitionHandler(requisitionService service.RequisitionService, listingService service.ListingService) *RequisitionHandler {
	return &RequisitionHandler{requisitionService: requisitionService, listingService: listingService}
}

func (h *RequisitionHandler) RegisterRoutes(router *gin.RouterGroup) {
	requisitions := router.Group("/api/requisitions")
	{
		requisitions.POST("/initialize", h.Initialize)
		requisitions.POST("", h.Finalize)
		requisitions.POST("/saved", h.SaveDraft)
		requisitions.GET("", h.List)
		requisitions.GET("/saved", h.ListSaved)
		requisitions.GET("/search", h.Search)
		requisitions.GET("/:id", h.Get)
		requisitions.DELETE("/:id", h.Delete)
		requisitions.POST("/:id/resubmit", h.Resubmit)
		requisitions.PATCH("/:id/approval", middleware.RequireRole(service.RoleApprover, service.RoleAdmin), h.Decide)
	}
}

// Initialize creates an empty requisition and issues its PR number
// @Summary      Initialize requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.InitializeRequisitionRequest  false  "Optional requestor details"
// @Success      201  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/requisitions/initialize [post]
func (h *RequisitionHandler) Initialize(c *gin.Context) {
	var req service.InitializeRequisitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badPayload(c, err)
			return
		}
	}

	res, err := h.requisitionService.Initialize(c.Request.Context(), middleware.Scope(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// Finalize submits the requisition for approval and reserves its estimate
// @Summary      Finalize requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.SubmitRequisitionRequest  true  "Requisition form"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/requisitions [post]
func (h *RequisitionHandler) Finalize(c *gin.Context) {
	var req service.SubmitRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.requisitionService.Finalize(c.Request.Context(), middleware.Scope(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SaveDraft stores the form as SAVED_FOR_LATER
// @Summary      Save requisition draft
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.SubmitRequisitionRequest  true  "Requisition form"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisitions/saved [post]
func (h *RequisitionHandler) SaveDraft(c *gin.Context) {
	var req service.SubmitRequisitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.requisitionService.SaveDraft(c.Request.Context(), middleware.Scope(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Resubmit sends a requisition back for approval after a modification request
// @Summary      Resubmit requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                     true  "Requisition ID"
// @Param        payload  body  service.RequisitionFields  true  "Requisition form"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/requisitions/{id}/resubmit [post]
func (h *RequisitionHandler) Resubmit(c *gin.Context) {
	var fields service.RequisitionFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.requisitionService.Resubmit(c.Request.Context(), middleware.Scope(c), c.Param("id"), fields)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// List returns one page of a status tab plus the badge count of every tab
// @Summary      List requisitions
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        status         query  string  false  "Tab: ALL, PENDING, APPROVED, REJECTED, REQUESTED_MODIFICATION, SAVED_FOR_LATER"
// @Param        page           query  int     false  "Page number (default: 1)"
// @Param        pageSize       query  int     false  "Items per page (default: 20, max: 100)"
// @Param        department_id  query  string  false  "Department filter"
// @Param        start_date     query  string  false  "Created on or after (YYYY-MM-DD)"
// @Param        end_date       query  string  false  "Created on or before (YYYY-MM-DD)"
// @Param        search         query  string  false  "Free-text filter"
// @Success      200  {object}  response.Response{data=service.ListingResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/requisitions [get]
func (h *RequisitionHandler) List(c *gin.Context) {
	res, err := h.listingService.Fetch(c.Request.Context(), middleware.Scope(c), service.ListQuery{
		Tab:          c.Query("status"),
		Page:         pagination.Parse(c),
		DepartmentID: c.Query("department_id"),
		StartDate:    c.Query("start_date"),
		EndDate:      c.Query("end_date"),
		Search:       c.Query("search"),
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListSaved returns every draft, unpaginated
// @Summary      List saved drafts
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.ListingResponse}
// @Router       /api/requisitions/saved [get]
func (h *RequisitionHandler) ListSaved(c *gin.Context) {
	res, err := h.listingService.Saved(c.Request.Context(), middleware.Scope(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Search matches the query against every requisition of the organization
// @Summary      Search requisitions
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        q  query  string  true  "Search text"
// @Success      200  {object}  response.Response{data=service.SearchResponse}
// @Router       /api/requisitions/search [get]
func (h *RequisitionHandler) Search(c *gin.Context) {
	res, err := h.listingService.Search(c.Request.Context(), middleware.Scope(c), c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// @Summary      Get requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Requisition ID"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requisitions/{id} [get]
func (h *RequisitionHandler) Get(c *gin.Context) {
	res, err := h.requisitionService.Get(c.Request.Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Delete removes a requisition that was never submitted
// @Summary      Delete requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Requisition ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisitions/{id} [delete]
func (h *RequisitionHandler) Delete(c *gin.Context) {
	if err := h.requisitionService.Delete(c.Request.Context(), middleware.Scope(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Requisition deleted successfully"}))
}

// Decide applies an approver decision
// @Summary      Decide requisition
// @Tags         requisitions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Requisition ID"
// @Param        payload  body  service.DecisionRequest  true  "APPROVED, REJECTED or REQUESTED_MODIFICATION"
// @Success      200  {object}  response.Response{data=service.RequisitionResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/requisitions/{id}/approval [patch]
func (h *RequisitionHandler) Decide(c *gin.Context) {
	var req service.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.requisitionService.Decide(c.Request.Context(), middleware.Scope(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}
