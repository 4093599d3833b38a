package routes

import (
	"net/http"
	"time"

	"github.com/akivalo0017-dot/travelsite/controllers/auth"
	"github.com/akivalo0017-dot/travelsite/controllers/users"
	"github.com/akivalo0017-dot/travelsite/middleware"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// UsersRoutes registers the auth and user-facing routes on the given subrouter.
func UsersRoutes(api *mux.Router, db *gorm.DB) {
	// Rate limiter login/register: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// Per-user session limiter: 120 reads, 60 writes per minute
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)

	authController := auth.NewAuthController(db)
	userController := users.NewUserController(db)

	// Register & Login
	api.Handle("/register", loginLimiter.Middleware(http.HandlerFunc(authController.Register))).Methods(http.MethodPost)
	api.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(authController.Login))).Methods(http.MethodPost)
	api.Handle("/refresh", loginLimiter.Middleware(http.HandlerFunc(authController.Refresh))).Methods(http.MethodPost)
	api.Handle("/logout", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(authController.Logout)))).Methods(http.MethodPost)

	// User info (read)
	api.Handle("/users/info", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(userController.Info)))).Methods(http.MethodGet)

	// User profile (update and delete)
	api.Handle("/users/profile", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(userController.UpdateProfile)))).Methods(http.MethodPut)
	api.Handle("/users/profile", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(userController.DeleteProfile)))).Methods(http.MethodDelete)

	// Task ladder
	api.Handle("/users/tasks", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(userController.Tasks)))).Methods(http.MethodGet)
	api.Handle("/users/tasks/complete", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(userController.CompleteTask)))).Methods(http.MethodPost)

	// Progression snapshot
	api.Handle("/users/progress", userLimiter.Middleware(middleware.AuthMiddleware(http.HandlerFunc(userController.Progress)))).Methods(http.MethodGet)
}
