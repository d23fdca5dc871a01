// Package server assembles the HTTP server: middleware, core routes and the
// feature modules.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/samber/do/v2"

	"github.com/nfrund/gymhub/internal/config"
	"github.com/nfrund/gymhub/internal/domain"
	"github.com/nfrund/gymhub/internal/handlers"
	appmw "github.com/nfrund/gymhub/internal/middleware"
	"github.com/nfrund/gymhub/internal/module"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	Cfg      *config.Config
	injector do.Injector
	modules  []module.Module
	logger   *slog.Logger
}

// New creates a server with its middleware installed. Call RegisterRoutes
// and InitModules before Start.
func New(cfg *config.Config, i do.Injector, modules []module.Module) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewValidator()
	setupErrorHandling(e)

	e.Use(echomw.RequestID())
	e.Use(echomw.Recover())
	e.Use(appmw.Logger)
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     corsOrigins(cfg),
		AllowCredentials: true,
	}))

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))

	return &Server{
		E:        e,
		Cfg:      cfg,
		injector: i,
		modules:  modules,
		logger:   slog.Default(),
	}
}

func corsOrigins(cfg *config.Config) []string {
	if origins := cfg.AllowedOrigins(); len(origins) > 0 {
		return origins
	}
	return []string{"*"}
}

// setupErrorHandling renders every error as an ErrorResponse and logs
// unexpected ones with a stack trace.
func setupErrorHandling(e *echo.Echo) {
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if !errors.As(err, &he) && domain.KindOf(err) == domain.KindInternal {
			appmw.FromContext(c.Request().Context()).Error("Internal Server Error (Unhandled)",
				"error", err.Error(),
				"path", c.Path(),
				"stack_trace", string(debug.Stack()),
			)
		}
		handlers.HTTPErrorHandler(err, c)
	}
}

// InitModules registers every module's services, then boots each one on its
// own route group under /api/<name>.
func (s *Server) InitModules(ctx context.Context, api *echo.Group) error {
	for _, m := range s.modules {
		if err := m.Register(s.injector); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	for _, m := range s.modules {
		if err := m.Boot(ctx, api.Group("/"+m.Name()), s.injector); err != nil {
			return fmt.Errorf("boot module %s: %w", m.Name(), err)
		}
		s.logger.Debug("Module ready", "module", m.Name(), "prefix", "/api/"+m.Name())
	}
	return nil
}

// Start serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.Cfg.Addr, "version", s.Cfg.Version)
		if err := s.E.Start(s.Cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting requests, then shuts down the modules and the
// container's services in reverse dependency order.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.E.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	for i := len(s.modules) - 1; i >= 0; i-- {
		if err := s.modules[i].Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("module %s: %w", s.modules[i].Name(), err))
		}
	}
	if report := s.injector.ShutdownWithContext(ctx); report != nil && !report.Succeed {
		errs = append(errs, report)
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Info("Server stopped")
	return nil
}
