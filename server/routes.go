package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(s.RateLimitMiddleware)...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware(s.RequireSession, s.RequireAdmin)...))
	s.RegisterRouteHandler("GET "+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.HTMLMiddleware()...))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSessionActivity, ChainMiddleware(s.ActivityHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteSessionExtend, ChainMiddleware(s.ExtendHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("GET "+RouteSessionEvents, ChainMiddleware(s.SessionEventsHandler(), s.APIMiddleware(s.RequireSession)...))

	// GOOGLE ACCOUNT
	s.RegisterRouteHandler("POST "+RouteDriveAuthStart, ChainMiddleware(s.DriveAuthStartHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteDriveAuthClosed, ChainMiddleware(s.DriveAuthClosedHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("GET "+RouteDriveAuthStatus, ChainMiddleware(s.DriveAuthStatusHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteDriveAuthSignOut, ChainMiddleware(s.DriveSignOutHandler(), s.APIMiddleware(s.RequireSession)...))

	// DRIVE
	s.RegisterRouteHandler("GET "+RouteDriveFiles, ChainMiddleware(s.ListFilesHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteDriveFiles, ChainMiddleware(s.UploadHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("DELETE "+RouteDriveFile, ChainMiddleware(s.DeleteFileHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("GET "+RouteDriveSearch, ChainMiddleware(s.SearchFilesHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteDriveFolders, ChainMiddleware(s.CreateFolderHandler(), s.APIMiddleware(s.RequireSession)...))

	// ADMIN
	s.RegisterRouteHandler("GET "+RouteAPIUsers, ChainMiddleware(s.UsersHandler(), s.APIMiddleware(s.RequireSession, s.RequireAdmin)...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.MetricsHandler())
	s.RegisterRouteFunc("GET "+RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
