package httpserver

import (
	"errors"
	"net/http"

	"farmtable/internal/domain"
	"github.com/gin-gonic/gin"
)

// writeError maps domain errors to HTTP statuses. Unknown errors are logged
// and reported without detail.
func (h *handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrEmptyCart):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorizedOrderAccess):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrPaymentNotPending), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrGatewayInit):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		if !errors.Is(err, domain.ErrCheckoutFailed) {
			msg = "internal error"
		}
	}
	c.JSON(status, gin.H{"error": msg})
}
