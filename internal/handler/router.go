package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/retzius/attendance-api/internal/middleware"
	"github.com/retzius/attendance-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	Student    *StudentHandler
	Subject    *SubjectHandler
	Enrollment *EnrollmentHandler
	Attendance *AttendanceHandler
	Photo      *PhotoHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)

		authed := auth.Group("")
		authed.Use(middleware.JWT(authService))
		{
			authed.GET("/me", h.Auth.Me)
			authed.PUT("/me", h.Auth.UpdateProfile)
			authed.DELETE("/users/:username", h.Auth.DeleteAccount)
			authed.PUT("/password", h.Auth.ChangePassword)
		}
	}

	// Photo downloads authenticate through the signed token alone.
	api.GET("/photos", h.Photo.Download)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	{
		protected.POST("/students", h.Student.Create)
		protected.GET("/students", h.Student.List)
		protected.GET("/students/:id", h.Student.Get)
		protected.GET("/students/control/:controlNumber", h.Student.GetByControlNumber)
		protected.PUT("/students/:id", h.Student.Update)
		protected.DELETE("/students/:id", h.Student.Delete)
		protected.GET("/students/:id/photo-url", h.Photo.SignURL)

		protected.POST("/subjects", h.Subject.Create)
		protected.GET("/subjects", h.Subject.List)
		protected.GET("/subjects/:id", h.Subject.Get)
		protected.PUT("/subjects/:id", h.Subject.Update)
		protected.DELETE("/subjects/:id", h.Subject.Delete)

		protected.GET("/subjects/:id/students", h.Enrollment.Roster)
		protected.POST("/subjects/:id/students/:studentId", h.Enrollment.Enroll)
		protected.DELETE("/subjects/:id/students/:studentId", h.Enrollment.Unenroll)

		protected.POST("/subjects/:id/attendance", h.Attendance.Record)
		protected.GET("/subjects/:id/attendance", h.Attendance.History)
		protected.GET("/subjects/:id/attendance/export", h.Attendance.Export)

		protected.GET("/metrics/summary", h.Metrics.Snapshot)
	}
}
