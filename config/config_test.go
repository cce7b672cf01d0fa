package config

import (
	"testing"
	"time"
)

func TestParseDurationShorthand(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"24h", 24 * time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"abc", 0, true},
		{"3x", 0, true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseDurationShorthand(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %v", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("USE_SSM", "false")
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SEMESTER_FEE", "")
	t.Setenv("ACADEMIC_YEAR", "")

	LoadConfig()

	if AppConfig == nil {
		t.Fatal("AppConfig not set")
	}
	if AppConfig.StoreDriver != StoreMemory {
		t.Fatalf("store driver = %q", AppConfig.StoreDriver)
	}
	if AppConfig.SemesterFee.String() != "11000" {
		t.Fatalf("semester fee = %s", AppConfig.SemesterFee)
	}
	if AppConfig.AcademicYear != "2023-2024" {
		t.Fatalf("academic year = %q", AppConfig.AcademicYear)
	}
	if AppConfig.AdminUsername != "admin" || AppConfig.AdminPassword != "1234" {
		t.Fatalf("unexpected admin defaults %q/%q", AppConfig.AdminUsername, AppConfig.AdminPassword)
	}
	if AppConfig.GeminiModel != "gemini-2.5-flash" {
		t.Fatalf("gemini model = %q", AppConfig.GeminiModel)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("USE_SSM", "false")
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("SEMESTER_FEE", "12500.50")
	t.Setenv("JWT_EXPIRES_IN", "7d")

	LoadConfig()

	if AppConfig.StoreDriver != StoreRedis {
		t.Fatalf("store driver = %q", AppConfig.StoreDriver)
	}
	if AppConfig.SemesterFee.String() != "12500.5" {
		t.Fatalf("semester fee = %s", AppConfig.SemesterFee)
	}
	if AppConfig.JWTExpiresIn != 7*24*time.Hour {
		t.Fatalf("jwt expiry = %v", AppConfig.JWTExpiresIn)
	}
}
