package server

import (
	"fmt"
	"net/http"

	"ctchen222/rally-tracker/internal/api/controller"
	"ctchen222/rally-tracker/internal/hub"
	"ctchen222/rally-tracker/internal/repository"
	rallyvalidator "ctchen222/rally-tracker/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("server")

type Server struct {
	hub      *hub.Hub
	events   repository.EventSubscriber
	matches  *controller.MatchController
	upgrader websocket.Upgrader
	engine   *gin.Engine
}

func NewServer(h *hub.Hub, subscriber repository.EventSubscriber, matchController *controller.MatchController) (*Server, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := rallyvalidator.RegisterCourtValidations(v); err != nil {
			return nil, fmt.Errorf("failed to register court validations: %w", err)
		}
	}

	s := &Server{
		hub:     h,
		events:  subscriber,
		matches: matchController,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": s.hub.Len()})
	})
	s.matches.RegisterRoutes(r.Group("/api/matches"))
	r.GET("/ws/matches/:id", s.handleStream)
	return r
}

// Engine returns the HTTP handler of the server.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
