package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"trueheal-portal/internal/handlers"
	"trueheal-portal/internal/logging"
	"trueheal-portal/internal/metrics"
	"trueheal-portal/internal/middleware"
	"trueheal-portal/internal/models"
	"trueheal-portal/internal/services"
)

// Deps is everything the routes need to build their handlers.
type Deps struct {
	Auth         *services.AuthService
	Users        *services.UserService
	Appointments *services.AppointmentService
	Reports      *services.ReportService
	Messages     *services.MessageService
	Departments  *services.DepartmentService
	Gate         *services.TokenGate
	Limiter      *middleware.RateLimiter // nil disables rate limiting
	Metrics      *metrics.Metrics        // nil disables /metrics
	Log          *logging.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, d Deps) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(d.Auth, d.Users, d.Log)
	userHandler := handlers.NewUserHandler(d.Users, d.Log)
	appointmentHandler := handlers.NewAppointmentHandler(d.Appointments, d.Log)
	reportHandler := handlers.NewReportHandler(d.Reports, d.Log)
	messageHandler := handlers.NewMessageHandler(d.Messages, d.Log)
	departmentHandler := handlers.NewDepartmentHandler(d.Departments, d.Log)

	auth := middleware.AuthMiddleware(d.Gate)
	var limited gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		limited = middleware.RateLimit(d.Limiter)
	}

	api := router.Group("/api/v1")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", limited, authHandler.Register)
		authRoutes.POST("/verify-otp", limited, authHandler.VerifyOTP)
		authRoutes.POST("/login", limited, authHandler.Login)
		authRoutes.POST("/forgot-password", limited, authHandler.ForgotPassword)
		authRoutes.POST("/reset-password", authHandler.ResetPassword)
		authRoutes.GET("/me", auth, authHandler.GetProfile)
		authRoutes.PATCH("/me", auth, authHandler.UpdateProfile)
	}

	// Public directories used by the booking form
	api.GET("/doctors", userHandler.GetDoctors)
	api.GET("/departments", departmentHandler.GetDepartments)
	api.POST("/departments", auth, middleware.RoleAuthMiddleware(models.RoleAdmin), departmentHandler.CreateDepartment)

	api.POST("/messages", limited, messageHandler.SubmitMessage)
	api.GET("/messages", auth, middleware.RoleAuthMiddleware(models.RoleAdmin), messageHandler.GetMessages)

	appointmentRoutes := api.Group("/appointments")
	{
		// Guests and signed-in users both book here
		appointmentRoutes.POST("", middleware.OptionalAuthMiddleware(d.Gate), appointmentHandler.CreateAppointment)

		private := appointmentRoutes.Group("")
		private.Use(auth)
		{
			private.GET("/mine", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.GetMyAppointments)
			private.GET("/doctor", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.GetDoctorAppointments)
			private.GET("", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.GetAllAppointments)

			// Ownership checks happen in the service
			private.GET("/:id", appointmentHandler.GetAppointmentByID)
			private.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateAppointmentStatus)
			private.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			private.DELETE("/:id", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CancelAppointment)
		}
	}

	reportRoutes := api.Group("/reports")
	reportRoutes.Use(auth)
	{
		reportRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), reportHandler.CreateReport)
		reportRoutes.GET("/mine", middleware.RoleAuthMiddleware(models.RolePatient), reportHandler.GetMyReports)
		reportRoutes.GET("/doctor", middleware.RoleAuthMiddleware(models.RoleDoctor), reportHandler.GetDoctorReports)
		reportRoutes.GET("", middleware.RoleAuthMiddleware(models.RoleAdmin), reportHandler.GetAllReports)
		reportRoutes.GET("/:id/download", middleware.RoleAuthMiddleware(models.RolePatient), reportHandler.DownloadReport)
		reportRoutes.PATCH("/:id/approve", middleware.RoleAuthMiddleware(models.RoleAdmin), reportHandler.ApproveReport)
		reportRoutes.PATCH("/:id/reject", middleware.RoleAuthMiddleware(models.RoleAdmin), reportHandler.RejectReport)
	}

	adminRoutes := api.Group("/admin/users")
	adminRoutes.Use(auth, middleware.RoleAuthMiddleware(models.RoleAdmin)) // Only Admins
	{
		adminRoutes.POST("", userHandler.CreateUser)
		adminRoutes.GET("", userHandler.GetUsers)
		adminRoutes.GET("/:id", userHandler.GetUserByID)
		adminRoutes.PATCH("/:id/status", userHandler.UpdateUserStatus)
		adminRoutes.DELETE("/:id", userHandler.DeleteUser)
	}

	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
