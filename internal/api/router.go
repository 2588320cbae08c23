package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codetracker/internal/auth"
	"codetracker/internal/cache"
	"codetracker/internal/db"
)

// NewRouter wires the full API surface. cache may be nil; existence
// checks then always hit the store.
func NewRouter(store db.Store, existsCache *cache.ExistsCache, authService *auth.Service, tokens *auth.TokenService, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authH := &authHandler{service: authService, log: log}
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/signup", authH.signUp)
		authGroup.POST("/signin", authH.signIn)
		authGroup.POST("/refresh", authH.refresh)
	}

	problemsH := &problemHandler{store: store, cache: existsCache, log: log}
	topicsH := &topicHandler{store: store, log: log}

	api := router.Group("/api", requireAuth(tokens))
	{
		api.POST("/problems", problemsH.create)
		api.GET("/problems", problemsH.list)
		api.PATCH("/problems/:id", problemsH.update)
		api.DELETE("/problems/:id", problemsH.remove)
		api.POST("/problems/check", problemsH.check)

		api.GET("/topics", topicsH.list)
		api.POST("/topics", topicsH.create)
		api.GET("/topics/:slug", topicsH.get)
		api.DELETE("/topics/:slug", topicsH.remove)
		api.GET("/topics/:slug/problems", topicsH.problems)
	}

	return router
}
