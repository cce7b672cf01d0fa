package services

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"udaan_go/config"
	"udaan_go/database"
	"udaan_go/services/ledger"
	"udaan_go/services/notifications"
	"udaan_go/services/websocket"
	"udaan_go/storage"
)

// Container holds every service built over one record store. The server
// and schoolctl both build theirs with NewContainer.
type Container struct {
	Store database.Store
	Conns *database.Connections

	Settings      *SettingsService
	Students      *StudentService
	Teachers      *TeacherService
	Attendance    *AttendanceService
	Exams         *ExamService
	Fees          *FeeService
	Dashboard     *DashboardService
	Reports       *ReportService
	Exports       *ExportService
	Backups       *BackupService
	ActivityLogs  *ActivityLogService
	Line          *LineMessagingService
	Notifications *notifications.Service
	Hub           *websocket.Hub
}

// NewContainer wires the services. Optional integrations (S3, LINE) are
// left disabled with a warning when their configuration is missing or broken.
func NewContainer(ctx context.Context, cfg *config.Config, store database.Store, conns *database.Connections) *Container {
	c := &Container{Store: store, Conns: conns, Hub: websocket.NewHub()}

	c.Settings = NewSettingsService(store, cfg.SchoolName, cfg.AcademicYear, cfg.LineGroupID)
	c.Students = NewStudentService(store)
	c.Teachers = NewTeacherService(store)
	c.Attendance = NewAttendanceService(store, c.Students)
	c.Exams = NewExamService(store, c.Students)
	c.Fees = NewFeeService(store, ledger.NewEngine(cfg.SemesterFee), c.Students, c.Settings)
	c.Dashboard = NewDashboardService(store, c.Fees, c.Settings)
	c.ActivityLogs = NewActivityLogService(store)
	c.Exports = NewExportService(c.Students, c.Fees)

	generator := NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEndpoint, cfg.GeminiTimeout)
	c.Reports = NewReportService(c.Students, c.Exams, c.Attendance, c.Settings, generator)

	var objects ObjectStore
	if cfg.BackupsEnabled() {
		s3, err := storage.NewS3Store(ctx, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, cfg.S3BucketName)
		if err != nil {
			logrus.WithError(err).Warn("S3 unavailable; backups disabled")
		} else {
			objects = s3
		}
	}
	c.Backups = NewBackupService(store, objects, c.Settings, cfg.BackupPrefix)

	if cfg.LineEnabled() {
		line, err := NewLineMessagingService(cfg.LineChannelSecret, cfg.LineChannelToken)
		if err != nil {
			logrus.WithError(err).Warn("LINE client unavailable; notifications disabled")
		} else {
			c.Line = line
			var rdb *redis.Client
			if conns != nil {
				rdb = conns.Redis
			}
			c.Notifications = notifications.NewService(line, c.Settings, rdb, cfg.UseRedisNotifications)
			c.Fees.SetNotifier(c.Notifications)
		}
	}
	c.Fees.SetPublisher(c.Hub)

	return c
}

// Notifier returns the notification service as a Notifier, or nil when LINE is disabled.
func (c *Container) Notifier() Notifier {
	if c.Notifications == nil {
		return nil
	}
	return c.Notifications
}
