package api

import (
	"net/http"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) salesSummary(c *gin.Context) {
	filter, err := reportFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	rows, err := h.reports.SalesSummary(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) salesByProduct(c *gin.Context) {
	filter, err := reportFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	rows, err := h.reports.SalesByProduct(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) salesByCustomer(c *gin.Context) {
	filter, err := reportFilter(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	rows, err := h.reports.SalesByCustomer(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) todaySales(c *gin.Context) {
	total, err := h.reports.TodaySales(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_sales_today": total})
}

func (h *Handler) weeklySalesChart(c *gin.Context) {
	chart, err := h.reports.WeeklySalesChart(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

func (h *Handler) dashboard(c *gin.Context) {
	d, err := h.reports.Dashboard(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	if err := h.auth.Login(c.Request.Context(), req); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "username": req.Username})
}
