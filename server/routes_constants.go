package server

// Route path constants
const (
	// Session routes
	RouteAuthLogin   = "/auth/login"
	RouteAuthRefresh = "/auth/refresh"
	RouteAuthLogout  = "/auth/logout"
	RouteMe          = "/me"

	// Self-service routes
	RouteMeProfile     = "/me/profile"
	RouteMePreferences = "/me/preferences"
	RouteMePhoto       = "/me/photo"

	// Admin routes (role Admin)
	RouteAdminLockStatus = "/admin/security/login-lock-status"
	RouteAdminUnlock     = "/admin/security/unlock-login"
	RouteAdminUsers      = "/admin/users"

	// Operational routes
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
