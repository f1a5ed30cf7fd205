package api

import (
	"net/http"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) createCustomer(c *gin.Context) {
	var req service.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	customer, err := h.catalog.CreateCustomer(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func (h *Handler) listCustomers(c *gin.Context) {
	page, err := pageParams(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.catalog.ListCustomers(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	customer, err := h.catalog.GetCustomer(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) updateCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req service.CustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	customer, err := h.catalog.UpdateCustomer(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func (h *Handler) archiveCustomer(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.catalog.ArchiveCustomer(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) customerSales(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}
	page, err := pageParams(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	history, err := h.reports.CustomerSales(c.Request.Context(), id, page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *Handler) countOutstandingCustomers(c *gin.Context) {
	count, err := h.reports.CountOutstandingCustomers(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
