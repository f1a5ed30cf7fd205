package api

import (
	"net/http"

	"inventory-service/internal/service"

	"github.com/gin-gonic/gin"
)

type receiveStockRequest struct {
	QuantityReceived int `json:"quantityReceived" binding:"required,min=1"`
}

type adjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *Handler) listProducts(c *gin.Context) {
	page, err := pageParams(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.catalog.ListProducts(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) archiveProduct(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.catalog.ArchiveProduct(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) receiveStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req receiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	product, err := h.stock.ReceiveStock(c.Request.Context(), id, req.QuantityReceived)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) adjustStock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, bindError(err))
		return
	}

	product, err := h.stock.AdjustStock(c.Request.Context(), id, req.Delta)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) countLowStock(c *gin.Context) {
	threshold, err := queryInt(c, "threshold", 0)
	if err != nil {
		h.writeError(c, err)
		return
	}

	count, err := h.catalog.CountLowStock(c.Request.Context(), threshold)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
