package handler

import (
	"net/http"

	"oficina/internal/apierror"
	"oficina/internal/dto"
	"oficina/internal/middleware"
	"oficina/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CashRegistersHandler struct{ svc service.CashRegisterService }

func NewCashRegistersHandler(svc service.CashRegisterService) *CashRegistersHandler {
	return &CashRegistersHandler{svc: svc}
}

func userIDPtr(c *gin.Context) *uuid.UUID {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return nil
	}
	id := claims.UserUUID()
	return &id
}

// Open godoc
// @Summary Opens the establishment's cash register
// @Tags cash-registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.OpenRegisterRequest true "Opening data"
// @Success 201 {object} dto.CashRegisterResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-registers [post]
func (h *CashRegistersHandler) Open(c *gin.Context) {
	var req dto.OpenRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	reg, err := h.svc.Open(c.Request.Context(), middleware.GetClaims(c).UserUUID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRegisterResponse(reg))
}

// GetOpen godoc
// @Summary Returns the open register of an establishment
// @Tags cash-registers
// @Produce json
// @Security BearerAuth
// @Param establishment_id query string true "Establishment ID"
// @Success 200 {object} dto.CashRegisterResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/cash-registers/open [get]
func (h *CashRegistersHandler) GetOpen(c *gin.Context) {
	estID, err := uuid.Parse(c.Query("establishment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid establishment_id"))
		return
	}
	reg, err := h.svc.GetOpen(c.Request.Context(), estID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegisterResponse(reg))
}

// Get godoc
// @Summary Returns a cash register
// @Tags cash-registers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Success 200 {object} dto.CashRegisterResponse
// @Router /v1/cash-registers/{id} [get]
func (h *CashRegistersHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	reg, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegisterResponse(reg))
}

// PostMovement godoc
// @Summary Posts a manual entry or exit
// @Tags cash-registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Param body body dto.PostMovementRequest true "Movement"
// @Success 201 {object} dto.CashMovementResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-registers/{id}/movements [post]
func (h *CashRegistersHandler) PostMovement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.PostMovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	mv, err := h.svc.PostMovement(c.Request.Context(), id, userIDPtr(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMovementResponse(mv))
}

// ListMovements godoc
// @Summary Lists the register's movements in posting order
// @Tags cash-registers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Success 200 {array} dto.CashMovementResponse
// @Router /v1/cash-registers/{id}/movements [get]
func (h *CashRegistersHandler) ListMovements(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListMovements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dto.CashMovementResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toMovementResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// ReverseMovement godoc
// @Summary Posts the compensating movement of a previous one
// @Tags cash-registers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Movement ID"
// @Success 201 {object} dto.CashMovementResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/cash-movements/{id}/reverse [post]
func (h *CashRegistersHandler) ReverseMovement(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	mv, err := h.svc.ReverseMovement(c.Request.Context(), id, userIDPtr(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toMovementResponse(mv))
}

// Close godoc
// @Summary Closes the register with the declared cash count
// @Tags cash-registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Register ID"
// @Param body body dto.CloseRegisterRequest true "Declared amount"
// @Success 200 {object} dto.CashRegisterResponse
// @Router /v1/cash-registers/{id}/close [post]
func (h *CashRegistersHandler) Close(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CloseRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	reg, err := h.svc.Close(c.Request.Context(), id, middleware.GetClaims(c).UserUUID(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRegisterResponse(reg))
}
