package server

import (
	"net/http"

	"github.com/jrsteele09/go-hris-auth/users"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// Session
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth())...))

	// Self-service
	self := s.APIMiddleware(s.RequireAuth())
	s.RegisterRouteFunc("GET "+RouteMeProfile, ChainMiddleware(s.GetProfileHandler(), self...))
	s.RegisterRouteFunc("PUT "+RouteMeProfile, ChainMiddleware(s.UpdateProfileHandler(), self...))
	s.RegisterRouteFunc("GET "+RouteMePreferences, ChainMiddleware(s.GetPreferencesHandler(), self...))
	s.RegisterRouteFunc("PUT "+RouteMePreferences, ChainMiddleware(s.UpdatePreferencesHandler(), self...))
	s.RegisterRouteFunc("PUT "+RouteMePhoto, ChainMiddleware(s.UpdatePhotoHandler(), self...))

	// Admin
	admin := s.APIMiddleware(s.RequireAuth(), s.RequireRole(users.RoleAdmin))
	s.RegisterRouteFunc("GET "+RouteAdminLockStatus, ChainMiddleware(s.LockStatusHandler(), admin...))
	s.RegisterRouteFunc("POST "+RouteAdminUnlock, ChainMiddleware(s.UnlockHandler(), admin...))
	s.RegisterRouteFunc("GET "+RouteAdminUsers, ChainMiddleware(s.ListUsersHandler(), admin...))
	s.RegisterRouteFunc("POST "+RouteAdminUsers, ChainMiddleware(s.CreateUserHandler(), admin...))

	// CORS preflight for every API route
	s.RegisterRouteFunc("OPTIONS /", ChainMiddleware(http.NotFound, s.CorsMiddleware))

	// Operational
	s.RegisterRouteFunc("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
}
