package routes

import (
	"net/http"
	"time"

	"github.com/akivalo0017-dot/travelsite/controllers/admins"
	"github.com/akivalo0017-dot/travelsite/middleware"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

func SetAdminRoutes(api *mux.Router, db *gorm.DB) {
	// Admin bootstrap: 5 attempts per IP per minute
	setupLimiter := middleware.NewIPRateLimiter(5, time.Minute)

	adminController := admins.NewAdminController(db)

	// Public bootstrap route, gated by X-Admin-Key inside the handler
	api.Handle("/admin/create-admin", setupLimiter.Middleware(http.HandlerFunc(adminController.CreateAdmin))).Methods(http.MethodPost)

	// Protected admin routes
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	// User management
	adminRouter.Handle("/users", http.HandlerFunc(adminController.ListUsers)).Methods(http.MethodGet)
	adminRouter.Handle("/users/approve", http.HandlerFunc(adminController.ApproveUser)).Methods(http.MethodPost)
}
