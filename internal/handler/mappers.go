package handler

import (
	"time"

	"oficina/internal/dto"
	"oficina/internal/model"

	"github.com/google/uuid"
)

func fmtTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func fmtTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtTime(*t)
	return &s
}

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func toItemResponse(it model.OrderItem) dto.OrderItemResponse {
	return dto.OrderItemResponse{
		ID:            it.ID.String(),
		CatalogItemID: idPtr(it.CatalogItemID),
		Description:   it.Description,
		Kind:          string(it.Kind),
		Quantity:      it.Quantity,
		UnitPrice:     it.UnitPrice,
		Total:         it.Total,
	}
}

func toTotalsResponse(t model.Totals) dto.TotalsResponse {
	return dto.TotalsResponse{
		Subtotal:  t.Subtotal,
		Discount:  t.Discount,
		Surcharge: t.Surcharge,
		Total:     t.Total,
	}
}

func toPartRequestResponse(pr model.PartRequest) dto.PartRequestResponse {
	return dto.PartRequestResponse{
		ID:          pr.ID.String(),
		OrderID:     pr.OrderID.String(),
		Description: pr.Description,
		Status:      string(pr.Status),
		OpenedAt:    fmtTime(pr.OpenedAt),
		ClosedAt:    fmtTimePtr(pr.ClosedAt),
	}
}

func toOrderResponse(o *model.Order) dto.OrderResponse {
	resp := dto.OrderResponse{
		ID:              o.ID.String(),
		EstablishmentID: o.EstablishmentID.String(),
		ClientID:        o.ClientID.String(),
		VehicleID:       idPtr(o.VehicleID),
		Description:     o.Description,
		Status:          string(o.Status),
		Totals:          toTotalsResponse(o.Totals()),
		ResponsibleID:   idPtr(o.ResponsibleID),
		Items:           make([]dto.OrderItemResponse, 0, len(o.Items)),
		PartRequests:    make([]dto.PartRequestResponse, 0, len(o.PartRequests)),
		OpenedAt:        fmtTime(o.OpenedAt),
		ClosedAt:        fmtTimePtr(o.ClosedAt),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, toItemResponse(it))
	}
	for _, pr := range o.PartRequests {
		resp.PartRequests = append(resp.PartRequests, toPartRequestResponse(pr))
	}
	return resp
}

func toPaymentResponse(p *model.Payment) dto.PaymentResponse {
	resp := dto.PaymentResponse{
		ID:               p.ID.String(),
		OrderID:          p.OrderID.String(),
		ClientID:         p.ClientID.String(),
		TotalAmount:      p.TotalAmount,
		Discount:         p.Discount,
		Surcharge:        p.Surcharge,
		PaidAmount:       p.PaidAmount,
		InstallmentCount: p.InstallmentCount,
		Plan:             p.PlanLabel(),
		Method:           string(p.Method),
		Status:           string(p.Status),
		DueDate:          fmtTimePtr(p.DueDate),
		PaidDate:         fmtTimePtr(p.PaidDate),
		CashRegisterID:   idPtr(p.CashRegisterID),
		Installments:     make([]dto.InstallmentResponse, 0, len(p.Installments)),
	}
	count := len(p.Installments)
	if p.InstallmentCount != nil {
		count = *p.InstallmentCount
	}
	for _, inst := range p.Installments {
		resp.Installments = append(resp.Installments, dto.InstallmentResponse{
			ID:         inst.ID.String(),
			Number:     inst.Number,
			Label:      inst.Label(count),
			Amount:     inst.Amount,
			DueDate:    inst.DueDate.UTC().Format("2006-01-02"),
			Status:     string(inst.Status),
			PaidAmount: inst.PaidAmount,
			PaidDate:   fmtTimePtr(inst.PaidDate),
		})
	}
	return resp
}

func toRegisterResponse(r *model.CashRegister) dto.CashRegisterResponse {
	resp := dto.CashRegisterResponse{
		ID:                    r.ID.String(),
		EstablishmentID:       r.EstablishmentID.String(),
		Status:                string(r.Status),
		OpeningBalance:        r.OpeningBalance,
		EntriesTotal:          r.EntriesTotal,
		ExitsTotal:            r.ExitsTotal,
		Balance:               r.Balance(),
		RevenueTotal:          r.RevenueTotal,
		DeclaredClosingAmount: r.DeclaredClosingAmount,
		ClosingDifference:     r.ClosingDifference,
		OpenedBy:              r.OpenedBy.String(),
		ClosedBy:              idPtr(r.ClosedBy),
		OpenedAt:              fmtTime(r.OpenedAt),
		ClosedAt:              fmtTimePtr(r.ClosedAt),
	}
	if r.DifferenceClass != nil {
		s := string(*r.DifferenceClass)
		resp.DifferenceClass = &s
	}
	return resp
}

func toMovementResponse(m *model.CashMovement) dto.CashMovementResponse {
	return dto.CashMovementResponse{
		ID:             m.ID.String(),
		CashRegisterID: m.CashRegisterID.String(),
		Type:           string(m.Type),
		Amount:         m.Amount,
		PriorBalance:   m.PriorBalance,
		Description:    m.Description,
		UserID:         idPtr(m.UserID),
		ReversesID:     idPtr(m.ReversesID),
		CreatedAt:      fmtTime(m.CreatedAt),
	}
}
