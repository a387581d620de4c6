package handler

import (
	"net/http"

	"oficina/internal/dto"
	"oficina/internal/middleware"
	"oficina/internal/service"

	"github.com/gin-gonic/gin"
)

type OrdersHandler struct{ svc service.OrderService }

func NewOrdersHandler(svc service.OrderService) *OrdersHandler { return &OrdersHandler{svc: svc} }

// Create godoc
// @Summary Opens a service order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateOrderRequest true "Order data"
// @Success 201 {object} dto.OrderResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/orders [post]
func (h *OrdersHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	order, err := h.svc.Create(c.Request.Context(), claims.UserUUID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResponse(order))
}

// Get godoc
// @Summary Returns an order with its active items and part requests
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/orders/{id} [get]
func (h *OrdersHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Delete godoc
// @Summary Deletes an order that was never finalized or charged
// @Tags orders
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 204
// @Failure 409 {object} apierror.APIError
// @Router /v1/orders/{id} [delete]
func (h *OrdersHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddItem godoc
// @Summary Adds a catalog product or service to the order
// @Description Repeated products merge into one line; a service can appear only once.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param body body dto.AddItemRequest true "Catalog item and quantity"
// @Success 201 {object} dto.OrderItemResponse
// @Failure 409 {object} apierror.APIError
// @Failure 503 {object} apierror.APIError
// @Router /v1/orders/{id}/items [post]
func (h *OrdersHandler) AddItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	item, err := h.svc.AddItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toItemResponse(*item))
}

// AddAdHocItem godoc
// @Summary Adds a line that is not in the catalog
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param body body dto.AddAdHocItemRequest true "Line data"
// @Success 201 {object} dto.OrderItemResponse
// @Router /v1/orders/{id}/items/adhoc [post]
func (h *OrdersHandler) AddAdHocItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AddAdHocItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	item, err := h.svc.AddAdHocItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toItemResponse(*item))
}

// RemoveItem godoc
// @Summary Removes one unit of an item, deleting the line at zero
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param item_id path string true "Item ID"
// @Success 200 {object} dto.OrderItemResponse
// @Success 204
// @Router /v1/orders/{id}/items/{item_id} [delete]
func (h *OrdersHandler) RemoveItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "item_id")
	if !ok {
		return
	}
	item, err := h.svc.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	if item == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, toItemResponse(*item))
}

// UpdateAdjustments godoc
// @Summary Sets the order discount and surcharge
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param body body dto.AdjustmentsRequest true "Discount and surcharge"
// @Success 200 {object} dto.TotalsResponse
// @Router /v1/orders/{id}/adjustments [put]
func (h *OrdersHandler) UpdateAdjustments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustmentsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	totals, err := h.svc.UpdateAdjustments(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTotalsResponse(totals))
}

// Transition godoc
// @Summary Moves the order to a new status
// @Description Entering finalized generates the payment. Side-effect failures are reported as warnings.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param body body dto.TransitionRequest true "Target status"
// @Success 200 {object} dto.TransitionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/orders/{id}/status [patch]
func (h *OrdersHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.Transition(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.TransitionResponse{
		Order:    toOrderResponse(res.Order),
		Previous: string(res.Previous),
		Changed:  res.Changed,
		Warnings: res.Warnings,
	}
	if res.Payment != nil {
		p := toPaymentResponse(res.Payment)
		resp.Payment = &p
	}
	c.JSON(http.StatusOK, resp)
}

// OpenPartRequest godoc
// @Summary Opens a part request and parks the order in awaiting_parts
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param body body dto.OpenPartRequestRequest true "Part description"
// @Success 201 {object} dto.PartRequestResponse
// @Router /v1/orders/{id}/part-requests [post]
func (h *OrdersHandler) OpenPartRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.OpenPartRequestRequest
	if !bindAndValidate(c, &req) {
		return
	}
	pr, err := h.svc.OpenPartRequest(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPartRequestResponse(*pr))
}

// ClosePartRequest godoc
// @Summary Closes a part request; the order resumes when none remain open
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Part request ID"
// @Success 200 {object} dto.PartRequestResponse
// @Router /v1/part-requests/{id}/close [post]
func (h *OrdersHandler) ClosePartRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	pr, err := h.svc.ClosePartRequest(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPartRequestResponse(*pr))
}
