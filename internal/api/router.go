// Package api exposes the session manager over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abhisek/quizdungeon/internal/questions"
	"github.com/abhisek/quizdungeon/internal/session"
)

// DefaultMaxImportBytes caps the body of a question import request.
const DefaultMaxImportBytes = 4 << 20

// Router wires handlers onto a gin engine.
type Router struct {
	engine    *gin.Engine
	manager   *session.Manager
	importer  questions.Importer
	log       *zap.Logger
	maxImport int64
}

// NewRouter creates the HTTP router. importer may be nil, in which case
// question import is not exposed.
func NewRouter(m *session.Manager, importer questions.Importer, log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	engine := gin.New()
	engine.Use(recovery(log), requestLogger(log))

	r := &Router{
		engine:    engine,
		manager:   m,
		importer:  importer,
		log:       log,
		maxImport: DefaultMaxImportBytes,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/powerups", r.listPowerups)

		games := v1.Group("/games")
		{
			games.POST("", r.createGame)
			games.GET("/:player/:material", r.gameStatus)
		}

		sessions := v1.Group("/sessions/:id")
		{
			sessions.GET("", r.getSession)
			sessions.GET("/question", r.nextQuestion)
			sessions.POST("/answer", r.submitAnswer)
			sessions.POST("/powerups/:powerup", r.usePowerup)
			sessions.POST("/save", r.saveSession)
			sessions.POST("/abandon", r.abandon)
		}

		saves := v1.Group("/saves")
		{
			saves.GET("/:player/:material", r.listSaves)
			saves.POST("/:save/load", r.loadSave)
			saves.DELETE("/:save", r.deleteSave)
		}

		st := v1.Group("/stats/:player/:material")
		{
			st.GET("", r.statsReport)
			st.GET("/export/:format", r.exportStats)
			st.DELETE("", r.resetStats)
		}

		if r.importer != nil {
			v1.POST("/materials/:material/questions", r.importQuestions)
		}
	}
}

// Handler returns the http.Handler serving all routes.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Engine exposes the gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("request", fields...)
			return
		}
		log.Debug("request", fields...)
	}
}

func recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal error",
			Code:  "internal",
		})
	})
}
