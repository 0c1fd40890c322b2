package httpserver

import (
	"net/http"
	"net/url"

	"farmtable/internal/service/reconcile"
	"github.com/gin-gonic/gin"
)

// callbackFrom reads the processor payload. The processor posts a form, but
// some sandbox redirects arrive as GET with the same fields in the query.
func callbackFrom(c *gin.Context, route reconcile.Route) reconcile.Callback {
	field := func(key string) string {
		if v, ok := c.GetPostForm(key); ok {
			return v
		}
		return c.Query(key)
	}
	routed := c.Param("orderID")
	if routed == "" {
		routed = field("value_a")
	}
	return reconcile.Callback{
		Route:         route,
		RoutedOrderID: routed,
		Status:        field("status"),
		TranID:        field("tran_id"),
		Error:         field("error"),
	}
}

func (h *handlers) paymentRedirect(route reconcile.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := h.deps.ReconcileSvc.HandleRedirect(c.Request.Context(), callbackFrom(c, route))
		c.Redirect(http.StatusSeeOther, h.redirectTarget(res))
	}
}

func (h *handlers) redirectTarget(res reconcile.RedirectResult) string {
	q := url.Values{"payment": {string(res.Outcome)}}.Encode()
	if res.OrderID == "" {
		return h.deps.FrontendBaseURL + "/orders?" + q
	}
	return h.deps.FrontendBaseURL + "/orders/" + url.PathEscape(res.OrderID) + "?" + q
}

func (h *handlers) paymentIPN(c *gin.Context) {
	if err := h.deps.ReconcileSvc.HandleIPN(c.Request.Context(), callbackFrom(c, reconcile.RouteIPN)); err != nil {
		h.logger.Printf("ipn: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
