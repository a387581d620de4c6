package handler

import (
	"net/http"

	"oficina/internal/dto"
	"oficina/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

func paymentResult(res *service.PaymentResult) dto.PaymentResponse {
	resp := toPaymentResponse(res.Payment)
	resp.AlreadyExisted = res.AlreadyExisted
	resp.Warnings = res.Warnings
	return resp
}

// GetByOrder godoc
// @Summary Returns the active payment of an order
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/orders/{id}/payment [get]
func (h *PaymentsHandler) GetByOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetByOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(p))
}

// Configure godoc
// @Summary Chooses method and plan for the order's payment
// @Description "installments" is "full" or a count between 1 and 24; absent or null means "full". The installment schedule is replaced.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param body body dto.ConfigurePaymentRequest true "Payment configuration"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/orders/{id}/payment [put]
func (h *PaymentsHandler) Configure(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ConfigurePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.Configure(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentResult(res))
}

// Get godoc
// @Summary Returns a payment with its installments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Router /v1/payments/{id} [get]
func (h *PaymentsHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPaymentResponse(p))
}

// MarkPaid godoc
// @Summary Marks the whole payment as paid
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param body body dto.MarkPaidRequest false "Paid date"
// @Success 200 {object} dto.PaymentResponse
// @Router /v1/payments/{id}/pay [post]
func (h *PaymentsHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MarkPaidRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.MarkPaid(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentResult(res))
}

// MarkInstallmentPaid godoc
// @Summary Marks one installment as paid
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Installment ID"
// @Param body body dto.MarkPaidRequest false "Paid date"
// @Success 200 {object} dto.PaymentResponse
// @Router /v1/installments/{id}/pay [post]
func (h *PaymentsHandler) MarkInstallmentPaid(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.MarkPaidRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	res, err := h.svc.MarkInstallmentPaid(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentResult(res))
}

// Cancel godoc
// @Summary Cancels an unpaid payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.PaymentResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/payments/{id}/cancel [post]
func (h *PaymentsHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentResult(res))
}
