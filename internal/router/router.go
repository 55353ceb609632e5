package router

import (
	"github.com/gin-gonic/gin"
	"github.com/plannery/plannery-backend/config"
	"github.com/plannery/plannery-backend/internal/app/controller"
	"github.com/plannery/plannery-backend/internal/app/model"
	"github.com/plannery/plannery-backend/internal/middleware"
)

type Router struct {
	authController  *controller.AuthController
	venueController *controller.VenueController
	photoController *controller.PhotoController
	adminController *controller.AdminController
	authMiddleware  *middleware.AuthMiddleware
	config          *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	venueController *controller.VenueController,
	photoController *controller.PhotoController,
	adminController *controller.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:  authController,
		venueController: venueController,
		photoController: photoController,
		adminController: adminController,
		authMiddleware:  authMiddleware,
		config:          cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Plannery API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.Me)
		}

		venues := v1.Group("/venues")
		{
			venues.GET("", r.authMiddleware.OptionalAuthenticate(), r.venueController.Search)
			venues.GET("/trending", r.venueController.Trending)
			venues.GET("/recently-viewed",
				r.authMiddleware.Authenticate(),
				r.venueController.RecentlyViewed)
			venues.GET("/:id", r.authMiddleware.OptionalAuthenticate(), r.venueController.GetVenue)
			venues.POST("", r.authMiddleware.Authenticate(), r.venueController.CreateVenue)
			venues.PUT("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole(model.RoleAdmin, model.RoleModerator),
				r.venueController.UpdateVenue)
			venues.DELETE("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.venueController.DeleteVenue)

			venues.POST("/:id/follow", r.authMiddleware.Authenticate(), r.venueController.Follow)
			venues.DELETE("/:id/follow", r.authMiddleware.Authenticate(), r.venueController.Unfollow)

			venues.POST("/:id/plan-association", r.authMiddleware.Authenticate(), r.venueController.AssociatePlan)
			venues.DELETE("/:id/plan-association", r.authMiddleware.Authenticate(), r.venueController.DisassociatePlan)

			venues.GET("/:id/photos", r.authMiddleware.OptionalAuthenticate(), r.photoController.ListPhotos)
			venues.POST("/:id/photos", r.authMiddleware.Authenticate(), r.photoController.CreatePhoto)
			venues.POST("/:id/photos/upload-url", r.authMiddleware.Authenticate(), r.photoController.RequestUpload)
			venues.PUT("/:id/photos/primary",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole(model.RoleAdmin, model.RoleModerator),
				r.photoController.SetPrimary)
		}

		photos := v1.Group("/photos")
		{
			photos.DELETE("/:id", r.authMiddleware.Authenticate(), r.photoController.DeletePhoto)
		}

		admin := v1.Group("/admin")
		admin.Use(
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(model.RoleAdmin, model.RoleModerator),
		)
		{
			admin.GET("/photos/pending", r.adminController.ListPendingPhotos)
			admin.POST("/photos/:id/approve", r.adminController.ApprovePhoto)
			admin.POST("/photos/:id/reject", r.adminController.RejectPhoto)
			admin.POST("/photos/bulk-approve", r.adminController.BulkApprovePhotos)

			admin.POST("/venues/backfill",
				r.authMiddleware.RequireRole(model.RoleAdmin),
				r.adminController.BackfillVenues)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
