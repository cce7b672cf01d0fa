package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"udaan_go/database"
	"udaan_go/models"
)

// DefaultLogLimit caps Recent when no limit is given.
const DefaultLogLimit = 100

// ActivityLogService stores the audit trail of successful API mutations.
type ActivityLogService struct {
	store database.Store
	now   func() time.Time
}

func NewActivityLogService(store database.Store) *ActivityLogService {
	return &ActivityLogService{store: store, now: time.Now}
}

// LogFilter narrows Recent; empty fields match everything.
type LogFilter struct {
	Action   string
	Resource string
	Username string
	Limit    int
}

// Record assigns an id and timestamp when missing and stores the entry.
func (s *ActivityLogService) Record(ctx context.Context, entry models.ActivityLog) (models.ActivityLog, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := database.Put(ctx, s.store, database.ActivityLogs, entry); err != nil {
		return models.ActivityLog{}, errors.Wrap(err, "saving activity log")
	}
	return entry, nil
}

// Recent returns matching entries, newest first.
func (s *ActivityLogService) Recent(ctx context.Context, f LogFilter) ([]models.ActivityLog, error) {
	all, err := database.List[models.ActivityLog](ctx, s.store, database.ActivityLogs)
	if err != nil {
		return nil, errors.Wrap(err, "listing activity logs")
	}
	out := make([]models.ActivityLog, 0, len(all))
	for _, l := range all {
		if f.Action != "" && !strings.EqualFold(l.Action, f.Action) {
			continue
		}
		if f.Resource != "" && l.Resource != f.Resource {
			continue
		}
		if f.Username != "" && l.Username != f.Username {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Prune deletes entries older than retention and returns how many were removed.
func (s *ActivityLogService) Prune(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	n, err := database.RemoveWhere(ctx, s.store, database.ActivityLogs,
		func(l models.ActivityLog) bool { return l.CreatedAt.Before(cutoff) })
	if err != nil {
		return 0, errors.Wrap(err, "pruning activity logs")
	}
	return n, nil
}

// LogStats summarises the trail for the admin log view.
type LogStats struct {
	Total             int                  `json:"total"`
	TotalToday        int                  `json:"total_today"`
	ActionBreakdown   map[string]int       `json:"action_breakdown"`
	ResourceBreakdown map[string]int       `json:"resource_breakdown"`
	HourlyActivity    map[string]int       `json:"hourly_activity"`
	RecentActivity    []models.ActivityLog `json:"recent_activity"`
}

// Stats counts entries per action and resource, with today's hourly spread.
func (s *ActivityLogService) Stats(ctx context.Context) (LogStats, error) {
	all, err := database.List[models.ActivityLog](ctx, s.store, database.ActivityLogs)
	if err != nil {
		return LogStats{}, errors.Wrap(err, "listing activity logs")
	}
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	stats := LogStats{
		Total:             len(all),
		ActionBreakdown:   make(map[string]int),
		ResourceBreakdown: make(map[string]int),
		HourlyActivity:    make(map[string]int, 24),
	}
	for i := 0; i < 24; i++ {
		stats.HourlyActivity[fmt.Sprintf("%02d:00", i)] = 0
	}
	for _, l := range all {
		stats.ActionBreakdown[l.Action]++
		stats.ResourceBreakdown[l.Resource]++
		local := l.CreatedAt.In(now.Location())
		if !local.Before(today) {
			stats.TotalToday++
			stats.HourlyActivity[fmt.Sprintf("%02d:00", local.Hour())]++
		}
	}

	stats.RecentActivity, err = s.Recent(ctx, LogFilter{Limit: 10})
	if err != nil {
		return LogStats{}, err
	}
	return stats, nil
}
