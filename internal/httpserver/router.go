package httpserver

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"farmtable/internal/domain"
	"farmtable/internal/service/checkout"
	"farmtable/internal/service/payment"
	"farmtable/internal/service/reconcile"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

type productService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
}

type cartService interface {
	Get(ctx context.Context, id domain.Identity) (*domain.Cart, error)
	AddItem(ctx context.Context, id domain.Identity, productID string, quantity int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, id domain.Identity, productID string, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, id domain.Identity, productID string) (*domain.Cart, error)
}

type checkoutService interface {
	Checkout(ctx context.Context, id domain.Identity) (*checkout.Result, error)
}

type orderService interface {
	Get(ctx context.Context, id domain.Identity, orderID string) (*domain.Order, error)
	List(ctx context.Context, id domain.Identity) ([]domain.Order, error)
	Messages(ctx context.Context, id domain.Identity, orderID string) ([]domain.Message, error)
}

type paymentService interface {
	Initiate(ctx context.Context, id domain.Identity, orderID string) (*payment.Initiation, error)
}

type reconcileService interface {
	HandleRedirect(ctx context.Context, cb reconcile.Callback) reconcile.RedirectResult
	HandleIPN(ctx context.Context, cb reconcile.Callback) error
}

type fulfillmentService interface {
	Advance(ctx context.Context, id domain.Identity, orderID string, next domain.OrderStatus) (*domain.Order, error)
}

type tokenValidator interface {
	Validate(token string) (domain.Identity, error)
}

// Deps are the services the router dispatches to.
type Deps struct {
	ProductSvc     productService
	CartSvc        cartService
	CheckoutSvc    checkoutService
	OrderSvc       orderService
	PaymentSvc     paymentService
	ReconcileSvc   reconcileService
	FulfillmentSvc fulfillmentService
	Tokens         tokenValidator

	// FrontendBaseURL is where payment redirects send the buyer.
	FrontendBaseURL    string
	CORSAllowedOrigins []string
}

// buildRouter wires routes for the API.
func buildRouter(logger *log.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if deps.Tokens == nil {
		return nil, errors.New("httpserver: token validator required")
	}
	if deps.ProductSvc == nil || deps.CartSvc == nil || deps.CheckoutSvc == nil || deps.OrderSvc == nil ||
		deps.PaymentSvc == nil || deps.ReconcileSvc == nil || deps.FulfillmentSvc == nil {
		return nil, errors.New("httpserver: missing service dependency")
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())
	if len(deps.CORSAllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSAllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	router.GET("/api/products", h.listProducts)
	router.GET("/api/products/:id", h.getProduct)

	// Processor callbacks carry no bearer token.
	payments := router.Group("/api/payments")
	for _, route := range []reconcile.Route{reconcile.RouteSuccess, reconcile.RouteFail, reconcile.RouteCancel} {
		payments.GET("/"+string(route), h.paymentRedirect(route))
		payments.POST("/"+string(route), h.paymentRedirect(route))
		payments.GET("/"+string(route)+"/:orderID", h.paymentRedirect(route))
		payments.POST("/"+string(route)+"/:orderID", h.paymentRedirect(route))
	}
	payments.POST("/ipn", h.paymentIPN)

	api := router.Group("/api", identityMiddleware(deps.Tokens))
	api.GET("/cart", h.getCart)
	api.POST("/cart/items", h.addCartItem)
	api.PUT("/cart/items/:productID", h.setCartItem)
	api.DELETE("/cart/items/:productID", h.removeCartItem)
	api.POST("/checkout", h.checkout)
	api.GET("/orders", h.listOrders)
	api.GET("/orders/:id", h.getOrder)
	api.GET("/orders/:id/messages", h.orderMessages)
	api.POST("/orders/:id/payment", h.initiatePayment)
	api.POST("/orders/:id/status", h.advanceOrder)

	return router, nil
}
