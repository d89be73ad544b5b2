package mockserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/nhle/foodshare-desk/internal/logger"
	"github.com/nhle/foodshare-desk/internal/model"
)

// ConfigPath is the configuration file the module loads.
type ConfigPath string

// Module wires the mock server into an fx application.
var Module = fx.Options(
	fx.Provide(
		newConfig,
		newLogger,
		newServer,
		newHTTPServer,
	),
	fx.Invoke(registerHooks),
)

func newConfig(path ConfigPath) (*model.AppConfig, error) {
	return model.LoadConfig(string(path))
}

func newLogger(cfg *model.AppConfig) zerolog.Logger {
	return logger.NewConsole(cfg.Log, "foodshare-mock")
}

func newServer(cfg *model.AppConfig, log zerolog.Logger) *Server {
	s := New(
		WithSession(cfg.Mock.Session),
		WithCookieNames(cfg.Server.SessionCookie, cfg.Server.CSRFCookie),
		WithLogger(log),
	)
	s.Seed(cfg.Mock.Seed)
	return s
}

func newHTTPServer(cfg *model.AppConfig, s *Server) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	return &http.Server{
		Addr:              cfg.Mock.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func registerHooks(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	srv *http.Server,
	mock *Server,
	cfg *model.AppConfig,
	log zerolog.Logger,
) {
	simCtx, stopSim := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().
				Str("addr", srv.Addr).
				Int("unread", mock.Unread()).
				Bool("session_required", cfg.Mock.Session != "").
				Msg("mock server listening")

			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("mock server stopped")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			go mock.Simulate(simCtx, time.Duration(cfg.Mock.SimulateSec)*time.Second)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopSim()
			return srv.Shutdown(ctx)
		},
	})
}
