package httpserver

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"storefront/internal/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles the services the router dispatches to.
type Deps struct {
	DB          pinger
	Tokens      TokenVerifier
	Users       UserService
	Products    ProductService
	Carts       CartService
	Orders      OrderService
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.Tokens == nil:
		return errors.New("token verifier is required")
	case d.Users == nil:
		return errors.New("user service is required")
	case d.Products == nil:
		return errors.New("product service is required")
	case d.Carts == nil:
		return errors.New("cart service is required")
	case d.Orders == nil:
		return errors.New("order service is required")
	}
	return nil
}

type api struct {
	deps   Deps
	logger *zap.Logger
}

// buildRouter wires routes for the API.
func buildRouter(l *zap.Logger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	l = logger.OrNop(l)
	useJSONFieldNames()

	router := gin.New()
	router.MaxMultipartMemory = maxUploadMemory
	router.Use(logger.RequestLogger(l), gin.Recovery(), cors.New(corsConfig(deps.CORSOrigins)))

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.DB))

	a := &api{deps: deps, logger: l.Named("http")}
	authed := authenticate(deps.Tokens)

	router.POST("/register", a.register)
	router.POST("/login", a.login)
	profile := router.Group("/user/:userId/profile", authed, requireOwner(deps.Users, a.logger, profileOwnerRules))
	profile.GET("", a.getProfile)
	profile.PUT("", a.updateProfile)

	products := router.Group("/products")
	products.POST("", a.createProduct)
	products.GET("", a.listProducts)
	products.GET("/:productId", a.getProduct)
	products.PUT("/:productId", a.updateProduct)
	products.DELETE("/:productId", a.deleteProduct)

	cart := router.Group("/users/:userId/cart", authed, requireOwner(deps.Users, a.logger, cartOwnerRules))
	cart.POST("", a.addToCart)
	cart.PUT("", a.updateCart)
	cart.GET("", a.getCart)
	cart.DELETE("", a.clearCart)

	orders := router.Group("/users/:userId/orders", authed, requireOwner(deps.Users, a.logger, orderOwnerRules))
	orders.POST("", a.createOrder)
	orders.PUT("", a.updateOrder)
	orders.GET("", a.listOrders)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", idempotencyHeader},
		ExposeHeaders:    []string{"X-Request-ID", "x-api-key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// useJSONFieldNames makes validation errors report json/form names.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
}
