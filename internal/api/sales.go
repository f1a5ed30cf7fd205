package api

import (
	"net/http"

	"inventory-service/internal/models"
	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

const idempotencyHeader = "Idempotency-Key"

// createSale handles checkout
func (h *Handler) createSale(c *gin.Context) {
	var req service.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}
	req.IdempotencyKey = c.GetHeader(idempotencyHeader)

	resp, err := h.sales.CreateSale(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// recordPayment applies a payment to an outstanding sale. Any malformed
// amount is reported as an invalid amount.
func (h *Handler) recordPayment(c *gin.Context) {
	saleID, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, models.ErrInvalidAmount)
		return
	}

	view, err := h.payments.RecordPayment(c.Request.Context(), saleID, req.AmountReceived, c.GetHeader(idempotencyHeader))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) recentSales(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		h.writeError(c, err)
		return
	}

	sales, err := h.reports.RecentSales(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func (h *Handler) salesHistory(c *gin.Context) {
	filter, err := reportFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	page, err := pageParams(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.reports.SalesHistory(c.Request.Context(), filter, page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) saleDetail(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	detail, err := h.reports.SaleDetail(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) outstandingSales(c *gin.Context) {
	page, err := pageParams(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.reports.OutstandingSales(c.Request.Context(), page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
