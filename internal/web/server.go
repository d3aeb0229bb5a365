package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/thomiceli/gistfeed/internal/config"
	"github.com/thomiceli/gistfeed/internal/syncer"
	"github.com/thomiceli/gistfeed/internal/validator"
)

type Server struct {
	echo      *echo.Echo
	syncer    *syncer.Syncer
	validator *validator.GistfeedValidator
}

func NewServer(s *syncer.Syncer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	v := validator.NewValidator()
	e.Validator = v

	srv := &Server{echo: e, syncer: s, validator: v}

	srv.registerMiddlewares()
	e.HTTPErrorHandler = srv.errorHandler
	srv.registerRoutes()

	return srv
}

func (s *Server) registerMiddlewares() {
	s.echo.Pre(middleware.RemoveTrailingSlash())
	s.echo.Pre(middleware.CORS())
	s.echo.Pre(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI: true, LogStatus: true, LogMethod: true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().Str("uri", v.URI).Int("status", v.Status).Str("method", v.Method).
				Str("ip", ctx.RealIP()).TimeDiff("duration", time.Now(), v.StartTime).
				Msg("HTTP")
			return nil
		},
	}))
	s.echo.Use(middleware.Secure())
}

func (s *Server) registerRoutes() {
	s.echo.GET("/", s.index)
	s.echo.GET("/search", s.search)
	s.echo.GET("/healthcheck", s.healthcheck)

	if config.C.MetricsEnabled {
		s.echo.GET("/metrics", s.metrics)
	}

	s.echo.GET("/:username", s.userGists)
	s.echo.GET("/:username/:id", s.gist)
}

func (s *Server) errorHandler(err error, ctx echo.Context) {
	var httpErr *echo.HTTPError
	code := http.StatusInternalServerError
	message := http.StatusText(code)

	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, isStr := httpErr.Message.(string); isStr {
			message = msg
		}
	}

	if code >= 500 {
		log.Error().Err(err).Msg("HTTP error")
	}

	if !ctx.Response().Committed {
		if jsonErr := ctx.JSON(code, echo.Map{"error": message}); jsonErr != nil {
			log.Error().Err(jsonErr).Msg("Failed to write error response")
		}
	}
}

func (s *Server) Start() {
	addr := config.C.HttpHost + ":" + config.C.HttpPort

	log.Info().Msg("Starting HTTP server on http://" + addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

func (s *Server) Stop() {
	if err := s.echo.Close(); err != nil {
		log.Fatal().Err(err).Msg("Failed to stop HTTP server")
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
