package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"

	"github.com/chargesteer/chargesteer/internal/config"
	"github.com/chargesteer/chargesteer/internal/util/logbuf"
)

type Server struct {
	config      config.Config
	rootContext *actor.RootContext
	masterActor *actor.PID
	logBuffer   *logbuf.Buffer
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID, logBuffer *logbuf.Buffer) *http.Server {
	NewServer := &Server{
		config:      cfg,
		rootContext: rootContext,
		masterActor: masterActor,
		logBuffer:   logBuffer,
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.config.Port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
