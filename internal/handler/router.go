package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/presensia/presensia-api/internal/middleware"
	"github.com/presensia/presensia-api/internal/service"
)

// RegisterRoutes mounts the API surface. Student check-in is public; the
// teacher-facing issuance and reporting endpoints sit behind JWT.
func RegisterRoutes(r *gin.Engine, auth *AuthHandler, attendance *AttendanceHandler, authSvc *service.AuthService, metricsSvc *service.MetricsService) {
	r.POST("/auth/login", auth.Login)

	r.POST("/attendance/validate", attendance.Validate)

	protected := r.Group("/attendance", middleware.JWT(authSvc))
	{
		protected.GET("/class/:classId/teacher/:teacherId/qr", attendance.IssueQR)
		protected.GET("/class/:classId/report", attendance.Report)
		protected.GET("/class/:classId/report/export", attendance.ExportReport)
		protected.GET("/class/:classId/live-count", attendance.LiveCount)
		protected.GET("/class/:classId/alerts", attendance.Alerts)
		protected.GET("/class/:classId/dashboard", attendance.Dashboard)
		protected.GET("/class/:classId/dashboard/paged", attendance.DashboardPaged)
	}

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
}
