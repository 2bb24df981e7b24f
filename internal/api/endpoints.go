package api

// Route groups
const (
	Prefix     = "/api"
	AuthPrefix = Prefix + "/auth"
	Health     = "/healthz"
)

// Authentication endpoints, relative to AuthPrefix
const (
	AuthSignup         = "/signup"
	AuthVerifyEmail    = "/verify-email"
	AuthLogin          = "/login"
	AuthLogout         = "/logout"
	AuthForgotPassword = "/forgot-password"
	AuthResetPassword  = "/reset-password/:token"
	AuthCheckAuth      = "/check-auth"
)

// ProtectedEndpoints defines endpoints that require a valid session cookie
var ProtectedEndpoints = map[string]bool{
	AuthCheckAuth: true,
}

func IsProtected(path string) bool {
	return ProtectedEndpoints[path]
}
