package httpserver

import (
	"log"
	"net/http"

	"farmtable/internal/domain"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	deps   Deps
	logger *log.Logger
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type advanceRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.ProductSvc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": products, "count": len(products)})
}

func (h *handlers) getProduct(c *gin.Context) {
	p, err := h.deps.ProductSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *handlers) getCart(c *gin.Context) {
	cart, err := h.deps.CartSvc.Get(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	cart, err := h.deps.CartSvc.AddItem(c.Request.Context(), identityFrom(c), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) setCartItem(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	cart, err := h.deps.CartSvc.SetQuantity(c.Request.Context(), identityFrom(c), c.Param("productID"), req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	cart, err := h.deps.CartSvc.RemoveItem(c.Request.Context(), identityFrom(c), c.Param("productID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h *handlers) checkout(c *gin.Context) {
	res, err := h.deps.CheckoutSvc.Checkout(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.OrderSvc.List(c.Request.Context(), identityFrom(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": orders, "count": len(orders)})
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.deps.OrderSvc.Get(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) orderMessages(c *gin.Context) {
	msgs, err := h.deps.OrderSvc.Messages(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": msgs, "count": len(msgs)})
}

func (h *handlers) initiatePayment(c *gin.Context) {
	started, err := h.deps.PaymentSvc.Initiate(c.Request.Context(), identityFrom(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, started)
}

func (h *handlers) advanceOrder(c *gin.Context) {
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	o, err := h.deps.FulfillmentSvc.Advance(c.Request.Context(), identityFrom(c), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
