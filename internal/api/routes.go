package api

func (s *APIServer) setupRoutes() {
	authMiddleware := s.bearerTokenAuthMiddleware
	logMiddleware := s.loggingMiddleware

	s.router.Handle("GET /health", s.handleHealth())
	s.router.Handle("GET /v1/version", authMiddleware(s.handleVersion()))

	// Release routes
	s.router.Handle("POST /v1/releases", logMiddleware(authMiddleware(s.handleDeploy())))
	s.router.Handle("GET /v1/releases/{releaseID}", authMiddleware(s.handleReleaseStatus()))
	s.router.Handle("GET /v1/releases/{releaseID}/logs", authMiddleware(s.handleReleaseLogs()))
	s.router.Handle("GET /v1/apps/{appName}/releases", authMiddleware(s.handleReleaseHistory()))

	// Rollback routes
	s.router.Handle("GET /v1/apps/{appName}/targets/{targetName}/rollback-targets", authMiddleware(s.handleRollbackTargets()))
	s.router.Handle("POST /v1/rollback", logMiddleware(authMiddleware(s.handleRollback())))

	// Secrets routes
	s.router.Handle("GET /v1/secrets", authMiddleware(s.handleSecretsList()))
	s.router.Handle("POST /v1/secrets", authMiddleware(s.handleSetSecret()))
	s.router.Handle("DELETE /v1/secrets/{name}", authMiddleware(s.handleDeleteSecret()))
}
