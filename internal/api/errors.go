package api

import (
	"errors"
	"net/http"

	"inventory-service/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// statusFor maps the domain error taxonomy onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientStock),
		errors.Is(err, models.ErrAlreadySettled),
		errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}

	body := gin.H{"error": err.Error()}

	var verr *models.ValidationError
	if errors.As(err, &verr) && verr.Field != "" {
		body["field"] = verr.Field
	}

	var shortage *models.InsufficientStockError
	if errors.As(err, &shortage) {
		body["product_id"] = shortage.ProductID
		body["available"] = shortage.Available
		body["requested"] = shortage.Requested
	}

	c.JSON(status, body)
}

// bindError converts a binding failure into a validation error naming the
// first offending field
func bindError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return models.NewValidationError(fe.Field(), "failed '"+fe.Tag()+"' check")
	}
	return models.NewValidationError("", "invalid request body: "+err.Error())
}
