// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"voiceid/internal/delivery/http/middleware"
	"voiceid/internal/delivery/http/router/handler"
	"voiceid/internal/domain/entity"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler    *handler.AuthHandler
	userHandler    *handler.UserHandler
	authMiddleware *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:    params.AuthHandler,
		userHandler:    params.UserHandler,
		authMiddleware: params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
	}

	// Enrollment completion requires an onboarding credential.
	enrollGroup := e.Group("/auth/register")
	enrollGroup.Use(r.authMiddleware.Authenticate)
	enrollGroup.Use(r.authMiddleware.RequireScope(entity.ScopeOnboardingRequired))
	{
		enrollGroup.POST("/enroll-voice", r.authHandler.EnrollVoice)
	}

	// Voice verification requires a step-up credential.
	verifyGroup := e.Group("/auth/login")
	verifyGroup.Use(r.authMiddleware.Authenticate)
	verifyGroup.Use(r.authMiddleware.RequireScope(entity.ScopeSecondFactorRequired))
	{
		verifyGroup.POST("/verify-voice", r.authHandler.VerifyVoice)
	}

	// User routes require a full-access credential.
	userGroup := e.Group("/users")
	userGroup.Use(r.authMiddleware.Authenticate)
	userGroup.Use(r.authMiddleware.RequireScope(entity.ScopeFullAccess))
	{
		userGroup.GET("/me", r.userHandler.Me)
	}
}
