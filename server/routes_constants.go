package server

// Route path constants
const (
	// Auth Routes
	RouteAuthLogin    = "/auth/login"
	RouteAuthLogout   = "/auth/logout"
	RouteAuthRegister = "/auth/register"
	RouteAuthCallback = "/auth/callback"

	// Session Routes
	RouteAPIMe           = "/api/me"
	RouteAPISession      = "/api/session"
	RouteSessionActivity = "/api/session/activity"
	RouteSessionExtend   = "/api/session/extend"
	RouteSessionEvents   = "/api/session/events"

	// Google Account Routes
	RouteDriveAuthStart   = "/api/drive/auth/start"
	RouteDriveAuthClosed  = "/api/drive/auth/{flow}/closed"
	RouteDriveAuthStatus  = "/api/drive/auth/status"
	RouteDriveAuthSignOut = "/api/drive/auth/signout"

	// Drive Routes
	RouteDriveFiles   = "/api/drive/files"
	RouteDriveFile    = "/api/drive/files/{id}"
	RouteDriveSearch  = "/api/drive/search"
	RouteDriveFolders = "/api/drive/folders"

	// Admin Routes
	RouteAPIUsers = "/api/users"

	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
