// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"bidhub/internal/delivery/api/middleware"
	"bidhub/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler       *handler.AuthHandler
	CSRFHandler       *handler.CSRFHandler
	HealthHandler     *handler.HealthHandler
	CSRFMiddleware    *middleware.CSRFMiddleware
	SessionMiddleware *middleware.SessionMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler       *handler.AuthHandler
	csrfHandler       *handler.CSRFHandler
	healthHandler     *handler.HealthHandler
	csrfMiddleware    *middleware.CSRFMiddleware
	sessionMiddleware *middleware.SessionMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:       params.AuthHandler,
		csrfHandler:       params.CSRFHandler,
		healthHandler:     params.HealthHandler,
		csrfMiddleware:    params.CSRFMiddleware,
		sessionMiddleware: params.SessionMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", r.healthHandler.Check)

	apiV1 := e.Group("/api/v1")
	apiV1.GET("/csrf-token", r.csrfHandler.Token)

	// One route set per registrable kind; the handlers resolve :kind.
	kindGroup := apiV1.Group("/:kind", r.csrfMiddleware.Protect)
	{
		kindGroup.POST("/register", r.authHandler.Register)
		kindGroup.POST("/verify-email", r.authHandler.VerifyEmail)
		kindGroup.POST("/resend-otp", r.authHandler.ResendOTP)
		kindGroup.POST("/login", r.authHandler.Login)
		kindGroup.POST("/logout", r.authHandler.Logout)
		kindGroup.POST("/forgot-password", r.authHandler.ForgotPassword)
		kindGroup.POST("/reset-password", r.authHandler.ResetPassword)

		kindGroup.GET("/me", r.authHandler.Me, r.sessionMiddleware.Authenticate)
		kindGroup.PUT("/email", r.authHandler.ChangeEmail, r.sessionMiddleware.Authenticate)
	}
}
