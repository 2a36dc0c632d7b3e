package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-hris-auth/auth"
	"github.com/jrsteele09/go-hris-auth/internal/config"
	"github.com/jrsteele09/go-hris-auth/tenants"
	"github.com/jrsteele09/go-hris-auth/throttle"
	"github.com/jrsteele09/go-hris-auth/token"
	"github.com/jrsteele09/go-hris-auth/users"
	"github.com/rs/zerolog/log"
)

// HealthCheck pings one backing store.
type HealthCheck func(ctx context.Context) error

// Deps are the services the HTTP layer fronts.
type Deps struct {
	Auth         *auth.Service
	Users        *users.Service
	Tenants      tenants.Repo
	Throttle     *throttle.LoginThrottle
	Issuer       *token.Issuer
	Revocations  *token.RevocationRegistry
	HealthChecks map[string]HealthCheck // keyed by store name
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	deps     Deps
	validate *validator.Validate
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Users == nil || deps.Tenants == nil {
		return nil, errors.New("[Server New] auth service, user service and tenant repo are required")
	}
	if deps.Throttle == nil || deps.Issuer == nil || deps.Revocations == nil {
		return nil, errors.New("[Server New] throttle, issuer and revocation registry are required")
	}

	validate, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create validator: %w", err)
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		deps:     deps,
		validate: validate,
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
