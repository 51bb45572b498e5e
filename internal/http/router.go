package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/atlaslabs/atlas-auth/internal/config"
	"github.com/atlaslabs/atlas-auth/internal/http/handler"
	httpmiddleware "github.com/atlaslabs/atlas-auth/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, healthHandler *handler.HealthHandler, authMiddleware *httpmiddleware.Auth) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(nil))
	r.Use(httpmiddleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", authMiddleware.Authenticate, authHandler.Me)
	}

	r.GET("/", healthHandler.Root)
	r.GET("/api/hello", healthHandler.Hello)
	r.GET("/healthz", healthHandler.Health)

	return r
}
