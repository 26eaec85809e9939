package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/bookbot/internal/api/handlers"
	"github.com/yoockh/bookbot/internal/api/middleware"
	"github.com/yoockh/bookbot/internal/metrics"
)

type Deps struct {
	Auth *handlers.AuthHandler
	Chat *handlers.ChatHandler
	WS   *handlers.WSHandler

	Authn       middleware.TokenAuthenticator
	Limiter     middleware.Limiter // nil disables login/signup limiting
	RetryAfter  int
	CORSOrigins []string
	Metrics     *metrics.Metrics
	Log         *logrus.Logger
}

// NewEngine builds the gin engine with the global middleware stack and all
// routes registered.
func NewEngine(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Log != nil {
		r.Use(middleware.RequestLogger(d.Log))
	}
	r.Use(middleware.CORS(d.CORSOrigins))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	limited := middleware.RateLimit(d.Limiter, d.RetryAfter, d.Metrics, d.Log)
	r.POST("/login", limited, d.Auth.Login)
	r.POST("/signup", limited, d.Auth.Signup)
	r.POST("/logout", d.Auth.Logout)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Authn))

	auth.POST("/chat", d.Chat.Chat)
	auth.POST("/chat/speech", d.Chat.Speech)
	auth.GET("/chat/history", d.Chat.History)

	// WebSocket
	if d.WS != nil {
		auth.GET("/ws/chat", d.WS.Chat)
	}
}
