package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/elskow/authflow/internal/api"
)

const forgotPasswordMessage = "If an account exists for that email, a reset link has been sent"

type Handler struct {
	service          *Service
	cookie           *SessionCookie
	middleware       *AuthMiddleware
	log              *zap.Logger
	maskUnknownEmail bool
}

func NewHandler(service *Service, cookie *SessionCookie, middleware *AuthMiddleware, log *zap.Logger) *Handler {
	return &Handler{
		service:          service,
		cookie:           cookie,
		middleware:       middleware,
		log:              log,
		maskUnknownEmail: service.config.MaskUnknownEmail,
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// RegisterRoutes mounts the auth endpoints; protected ones get the session
// middleware.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	routes := map[string]struct {
		method  string
		handler gin.HandlerFunc
	}{
		api.AuthSignup:         {http.MethodPost, h.Signup},
		api.AuthVerifyEmail:    {http.MethodPost, h.VerifyEmail},
		api.AuthLogin:          {http.MethodPost, h.Login},
		api.AuthLogout:         {http.MethodPost, h.Logout},
		api.AuthForgotPassword: {http.MethodPost, h.ForgotPassword},
		api.AuthResetPassword:  {http.MethodPost, h.ResetPassword},
		api.AuthCheckAuth:      {http.MethodGet, h.CheckAuth},
	}

	for path, route := range routes {
		handlers := []gin.HandlerFunc{route.handler}
		if api.IsProtected(path) {
			handlers = append([]gin.HandlerFunc{h.middleware.RequireSession()}, handlers...)
		}
		r.Handle(route.method, path, handlers...)
	}
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if !h.bind(c, &req) {
		return
	}

	user, session, err := h.service.Signup(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.fail(c, "signup", err)
		return
	}

	h.cookie.Set(c, session)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User created successfully",
		"user":    user,
	})
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !h.bind(c, &req) {
		return
	}

	user, err := h.service.VerifyEmail(c.Request.Context(), req.Code)
	if err != nil {
		h.fail(c, "verify email", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email verified successfully",
		"user":    user,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !h.bind(c, &req) {
		return
	}

	user, session, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}

	h.cookie.Set(c, session)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged in successfully",
		"user":    user,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	h.cookie.Clear(c)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *Handler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	err := h.service.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil && !(h.maskUnknownEmail && errors.Is(err, ErrInvalidCredentials)) {
		h.fail(c, "forgot password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": forgotPasswordMessage,
	})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		h.fail(c, "reset password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password reset successfully",
	})
}

func (h *Handler) CheckAuth(c *gin.Context) {
	userID, err := GetUserFromContext(c)
	if err != nil {
		h.fail(c, "check auth", ErrInvalidToken)
		return
	}

	user, err := h.service.CheckAuth(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "check auth", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.log.Warn("invalid request body",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid request body",
		})
		return false
	}
	return true
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status, message := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(op+" failed", zap.Error(err))
	} else {
		h.log.Warn(op+" rejected",
			zap.String("kind", KindOf(err).String()),
			zap.String("reason", message))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// StatusFor maps a lifecycle error to an HTTP status and client message.
func StatusFor(err error) (int, string) {
	var authErr *Error
	if !errors.As(err, &authErr) {
		return http.StatusInternalServerError, "internal server error"
	}

	switch authErr.Kind {
	case KindValidation:
		return http.StatusBadRequest, authErr.Message
	case KindConflict:
		return http.StatusConflict, "User already exists"
	case KindInvalidCredentials:
		return http.StatusUnauthorized, "Invalid credentials"
	case KindInvalidOrExpired:
		return http.StatusBadRequest, authErr.Message
	case KindNotFound:
		return http.StatusNotFound, "User not found"
	case KindUnauthenticated:
		return http.StatusUnauthorized, "Unauthorized - invalid token"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
