package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/request-hub/app/adaptor"
)

const adaptorContextKey = "adaptor"

type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*adaptor.RemoteAdaptor, error)
}

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string, version string) *gin.Engine {
	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey, version)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string, version string) {
	r.GET("/playlists/:id", handler.GetPlaylist)

	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	if apiAccessKey != "" {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/requests", handler.APIListRequests)
			api.POST("/requests", handler.APICreateRequest)
			api.GET("/requests/:id", handler.APIGetRequest)
			api.PATCH("/requests/:id/content", handler.APIUpdateContent)
			api.POST("/requests/:id/revert", handler.APIRevertContent)
			api.POST("/requests/:id/suggestions", handler.APIAddSuggestion)
			api.POST("/requests/:id/suggestions/vote", handler.APIVoteSuggestion)

			api.GET("/pool", handler.APIGetPool)

			api.GET("/playlists", handler.APIListPlaylists)
			api.GET("/playlists/current", handler.APIGetCurrentPlaylist)
			api.POST("/playlists/current/requests/:id", handler.APIAddToPlaylist)
			api.POST("/playlists/broadcast", handler.APIBroadcast)

			api.GET("/harvests/:adaptor", handler.APIGetHarvest)

			api.GET("/adaptors", handler.APIListAdaptors)
			api.POST("/adaptors/:name/renew-key", handler.APIRenewKey)
			api.POST("/adaptors/:name/reload", handler.APIReloadAdaptor)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	adaptors := r.Group("/adaptor")
	adaptors.Use(adaptorAuthMiddleware(handler.registry))
	{
		adaptors.POST("/requests", handler.AdaptorCreateRequest)
	}

	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"playlist": "/playlists/<YYYYMMDD>",
			"health":   "/health",
			"stats":    "/stats",
			"submit":   "/adaptor/requests (POST, requires adaptor X-API-Key header)",
		}

		if apiAccessKey != "" {
			endpoints["requests"] = "/api/requests (requires X-API-Key header)"
			endpoints["pool"] = "/api/pool (requires X-API-Key header)"
			endpoints["broadcast"] = "/api/playlists/broadcast (POST, requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Request Hub",
			"version":     version,
			"description": "Community request curation with voted suggestions and daily broadcast playlists",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

func providedKey(c *gin.Context) string {
	if key := c.GetHeader("X-API-Key"); key != "" {
		return key
	}

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := providedKey(c)

		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if key != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		c.Next()
	}
}

// adaptorAuthMiddleware resolves the adaptor owning the provided key and
// stores it in the context.
func adaptorAuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := auth.Authenticate(c.Request.Context(), providedKey(c))
		if errors.Is(err, adaptor.ErrInvalidKey) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid adaptor key",
				"message": "Provide the adaptor API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}
		if err != nil {
			slog.Error("Adaptor authentication failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authentication error"})
			return
		}

		c.Set(adaptorContextKey, a)
		c.Next()
	}
}
