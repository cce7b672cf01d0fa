package routes

import (
	"github.com/gofiber/fiber/v2"

	"udaan_go/controllers"
	"udaan_go/handlers"
	"udaan_go/middleware"
	"udaan_go/services"
)

// Options carries what the routes need besides the service container.
type Options struct {
	Auth      controllers.AuthConfig
	Blacklist middleware.TokenBlacklist
	Health    *services.HealthService
	// LineSecret enables POST /line/webhook when set
	LineSecret string
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, svc *services.Container, opts Options) {
	authController := controllers.NewAuthController(opts.Auth, opts.Blacklist, svc.ActivityLogs)
	studentController := controllers.NewStudentController(svc.Students, svc.Exports, svc.Reports, svc.Hub)
	teacherController := controllers.NewTeacherController(svc.Teachers)
	attendanceController := controllers.NewAttendanceController(svc.Attendance, svc.Reports, svc.Hub)
	examController := controllers.NewExamController(svc.Exams)
	feeController := controllers.NewFeeController(svc.Fees, svc.Exports, svc.Hub)
	dashboardController := controllers.NewDashboardController(svc.Dashboard)
	settingsController := controllers.NewSettingsController(svc.Settings)
	logController := controllers.NewLogController(svc.ActivityLogs)
	backupController := controllers.NewBackupController(svc.Backups, svc.Hub)
	healthController := controllers.NewHealthController(opts.Health)
	wsController := controllers.NewWebSocketController(svc.Hub)

	jwt := middleware.JWTMiddleware(opts.Auth.JWTSecret, opts.Blacklist)

	app.Get("/health", healthController.GetHealthStatus)

	api := app.Group("/api")
	api.Get("/health", healthController.GetHealthStatus)

	// Authentication routes (no middleware)
	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)
	auth.Post("/logout", jwt, authController.Logout)
	auth.Get("/me", jwt, authController.Me)

	// Protected routes (require authentication)
	protected := api.Group("/", jwt, middleware.LogActivityMiddleware(svc.ActivityLogs))

	students := protected.Group("/students")
	students.Get("/", studentController.GetStudents)
	students.Post("/", studentController.CreateStudent)
	students.Get("/next-roll", studentController.NextRollNo)
	students.Get("/export", studentController.ExportStudents)
	students.Post("/import", studentController.ImportStudents)
	students.Get("/:id", studentController.GetStudent)
	students.Put("/:id", studentController.UpdateStudent)
	students.Delete("/:id", studentController.DeleteStudent)
	students.Post("/:id/report", studentController.GenerateReport)

	teachers := protected.Group("/teachers")
	teachers.Get("/", teacherController.GetTeachers)
	teachers.Post("/", teacherController.CreateTeacher)
	teachers.Get("/attendance", teacherController.GetAttendance)
	teachers.Get("/:id", teacherController.GetTeacher)
	teachers.Put("/:id", teacherController.UpdateTeacher)
	teachers.Delete("/:id", teacherController.DeleteTeacher)
	teachers.Put("/:id/attendance", teacherController.MarkAttendance)

	attendance := protected.Group("/attendance")
	attendance.Get("/", attendanceController.GetAttendance)
	attendance.Post("/mark-all", attendanceController.MarkAll)
	attendance.Get("/stats", attendanceController.GetStats)
	attendance.Post("/analysis", attendanceController.Analyze)
	attendance.Put("/:studentId", attendanceController.MarkAttendance)

	exams := protected.Group("/exams")
	exams.Get("/", examController.GetSheet)
	exams.Post("/", examController.SaveMarks)

	fees := protected.Group("/fees")
	fees.Get("/", feeController.GetLedger)
	fees.Get("/summary", feeController.GetSummary)
	fees.Get("/defaulters", feeController.GetDefaulters)
	fees.Get("/export", feeController.ExportLedger)
	fees.Get("/:studentId", feeController.GetRecord)
	fees.Get("/:studentId/status/:semester", feeController.GetSemesterStatus)
	fees.Post("/:studentId/payments", feeController.RecordPayment)

	protected.Get("/dashboard", dashboardController.GetStats)

	settings := protected.Group("/settings")
	settings.Get("/", settingsController.GetSettings)
	settings.Put("/", settingsController.UpdateSettings)

	logs := protected.Group("/logs")
	logs.Get("/", logController.GetLogs)
	logs.Get("/stats", logController.GetLogStats)
	logs.Delete("/cleanup", logController.DeleteOldLogs)

	backups := protected.Group("/backups")
	backups.Get("/", backupController.ListBackups)
	backups.Post("/", backupController.CreateBackup)
	backups.Post("/restore", backupController.RestoreBackup)

	protected.Get("/ws/stats", wsController.GetWebSocketStats)

	// WebSocket connection endpoint; the token comes from ?token=
	app.Get("/ws", jwt, wsController.Upgrade, wsController.WebSocketHandler())

	if opts.LineSecret != "" {
		var namer handlers.GroupNamer
		if svc.Line != nil {
			namer = svc.Line
		}
		lineHandler := handlers.NewLineWebhookHandler(opts.LineSecret, svc.Settings, namer)
		app.Post("/line/webhook", lineHandler.Handle)
		app.Get("/line/webhook", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{
				"status":  "ok",
				"message": "LINE webhook endpoint ready (use POST for real events)",
			})
		})
	}
}
