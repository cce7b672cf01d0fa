package services

import (
	"context"
	"testing"
	"time"

	"udaan_go/database"
)

func TestHealthReport(t *testing.T) {
	cases := []struct {
		name       string
		deps       HealthDeps
		wantStatus string
		wantCode   int
	}{
		{"memory store", HealthDeps{Store: database.NewMemoryStore(), StoreDriver: "memory"}, overallStatusOK, 200},
		{"no store", HealthDeps{StoreDriver: "mysql"}, overallStatusCritical, 503},
		{"queue without redis", HealthDeps{Store: database.NewMemoryStore(), Flags: HealthFlags{UseRedisNotifications: true}}, overallStatusDegraded, 200},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			svc := NewHealthService("", "", tc.deps)
			svc.SetStartTime(time.Now().Add(-90 * time.Minute))
			r := svc.GetHealthReport(context.Background())
			if r.Status != tc.wantStatus {
				t.Fatalf("status = %s want %s", r.Status, tc.wantStatus)
			}
			if code := svc.HTTPStatusForOverall(r.Status); code != tc.wantCode {
				t.Fatalf("http code = %d want %d", code, tc.wantCode)
			}
			if r.Dependencies[0].Name != "record_store" || r.UptimeSeconds < 5400 {
				t.Fatalf("unexpected report %+v", r)
			}
		})
	}
}
