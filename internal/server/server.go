package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GwennKoi/XorShiftLPC/internal/commons/logger_config"
	"github.com/GwennKoi/XorShiftLPC/internal/jobs"
	"github.com/GwennKoi/XorShiftLPC/internal/store"
	"github.com/GwennKoi/XorShiftLPC/internal/telemetry"
)

type Server struct {
	engine *gin.Engine
	store  store.Store
	pool   *jobs.ShufflePool
	sink   *telemetry.Sink
	addr   string
}

// New wires the router. sink may be nil.
func New(addr string, st store.Store, pool *jobs.ShufflePool, sink *telemetry.Sink) *Server {
	s := &Server{
		store: st,
		pool:  pool,
		sink:  sink,
		addr:  addr,
	}

	configureRouter(s)

	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Listen serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Listen(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger_config.Logger.Info("listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
