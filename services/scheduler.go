package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"udaan_go/services/websocket"
)

const (
	jobTimeout          = 2 * time.Minute
	dashboardPushSpec   = "@every 30s"
	logPruneSpec        = "@daily"
	DefaultLogRetention = 90 * 24 * time.Hour
)

// LiveHub is the part of the websocket hub the scheduler needs.
type LiveHub interface {
	EventPublisher
	GetClientCount() int
}

// ScheduleConfig holds cron expressions; an empty expression disables its job.
type ScheduleConfig struct {
	BackupCron          string
	DefaulterDigestCron string
	LogRetention        time.Duration
}

// Scheduler runs the periodic jobs of the service.
type Scheduler struct {
	cron      *cron.Cron
	cfg       ScheduleConfig
	backups   *BackupService
	fees      *FeeService
	dashboard *DashboardService
	logs      *ActivityLogService
	notifier  Notifier
	hub       LiveHub
}

// NewScheduler wires the jobs; notifier and hub may be nil.
func NewScheduler(cfg ScheduleConfig, backups *BackupService, fees *FeeService, dashboard *DashboardService, logs *ActivityLogService, notifier Notifier, hub LiveHub) *Scheduler {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	if cfg.LogRetention <= 0 {
		cfg.LogRetention = DefaultLogRetention
	}
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		cfg:       cfg,
		backups:   backups,
		fees:      fees,
		dashboard: dashboard,
		logs:      logs,
		notifier:  notifier,
		hub:       hub,
	}
}

// Start registers every enabled job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.BackupCron != "" && s.backups.Enabled() {
		if _, err := s.cron.AddFunc(s.cfg.BackupCron, s.RunBackup); err != nil {
			return errors.Wrapf(err, "invalid BACKUP_CRON %q", s.cfg.BackupCron)
		}
		logrus.WithField("schedule", s.cfg.BackupCron).Info("Backup job scheduled")
	}
	if s.cfg.DefaulterDigestCron != "" && s.notifier != nil {
		if _, err := s.cron.AddFunc(s.cfg.DefaulterDigestCron, s.RunDefaulterDigest); err != nil {
			return errors.Wrapf(err, "invalid DEFAULTER_DIGEST_CRON %q", s.cfg.DefaulterDigestCron)
		}
		logrus.WithField("schedule", s.cfg.DefaulterDigestCron).Info("Defaulter digest job scheduled")
	}
	if s.hub != nil {
		if _, err := s.cron.AddFunc(dashboardPushSpec, s.PushDashboard); err != nil {
			return errors.Wrap(err, "scheduling dashboard push")
		}
	}
	if _, err := s.cron.AddFunc(logPruneSpec, s.PruneLogs); err != nil {
		return errors.Wrap(err, "scheduling log pruning")
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) RunBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	info, err := s.backups.Backup(ctx)
	if err != nil {
		logrus.WithError(err).Error("Scheduled backup failed")
		return
	}
	if s.hub != nil {
		s.hub.Publish(websocket.EventBackupCompleted, info)
	}
}

func (s *Scheduler) RunDefaulterDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	text, n, err := s.fees.DefaulterDigest(ctx)
	if err != nil {
		logrus.WithError(err).Error("Defaulter digest failed")
		return
	}
	if n == 0 {
		logrus.Info("No fee defaulters; digest skipped")
		return
	}
	if err := s.notifier.Notify(ctx, text); err != nil {
		logrus.WithError(err).Error("Failed to send defaulter digest")
		return
	}
	logrus.WithField("defaulters", n).Info("Defaulter digest sent")
}

// PushDashboard broadcasts fresh stats while anyone is watching.
func (s *Scheduler) PushDashboard() {
	if s.hub.GetClientCount() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	stats, err := s.dashboard.Stats(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Dashboard push failed")
		return
	}
	s.hub.Publish(websocket.EventDashboardStats, stats)
}

func (s *Scheduler) PruneLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := s.logs.Prune(ctx, s.cfg.LogRetention)
	if err != nil {
		logrus.WithError(err).Warn("Activity log pruning failed")
		return
	}
	if n > 0 {
		logrus.WithField("removed", n).Info("Old activity logs pruned")
	}
}
