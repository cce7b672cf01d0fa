package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"udaan_go/models"
)

func geminiStub(t *testing.T, status int, reply string, seen *geminiRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/test-model:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("api key header missing")
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStudentReportUsesGenerator(t *testing.T) {
	env := newTestEnv(t)
	st := env.addStudent(t, "Aarav Sharma")
	if _, err := env.exams.SaveMarks(context.Background(), models.ExamMidTerm, "Mathematics", map[string]float64{st.ID: 88}); err != nil {
		t.Fatalf("SaveMarks: %v", err)
	}

	var seen geminiRequest
	srv := geminiStub(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Aarav is "},{"text":"doing well. "}]}}]}`, &seen)
	gen := NewGeminiClient("secret", "test-model", srv.URL, 5*time.Second)
	reports := NewReportService(env.students, env.exams, env.attendance, env.settings, gen)

	r, err := reports.StudentReport(context.Background(), st.ID)
	if err != nil {
		t.Fatalf("StudentReport: %v", err)
	}
	if !r.Generated || r.Text != "Aarav is doing well." {
		t.Fatalf("unexpected report %+v", r)
	}
	if seen.SystemInstruction == nil || !strings.Contains(seen.SystemInstruction.Parts[0].Text, "Udaan Vidhyalay") {
		t.Fatalf("system instruction should name the school: %+v", seen.SystemInstruction)
	}
	if len(seen.Contents) != 1 || !strings.Contains(seen.Contents[0].Parts[0].Text, "Mathematics") {
		t.Fatalf("prompt should include exam results: %+v", seen.Contents)
	}
}

func TestReportFallbacks(t *testing.T) {
	env := newTestEnv(t)
	st := env.addStudent(t, "Diya Patel")
	ctx := context.Background()

	noKey := NewReportService(env.students, env.exams, env.attendance, env.settings, NewGeminiClient("", "test-model", "http://127.0.0.1:1", time.Second))
	r, err := noKey.StudentReport(ctx, st.ID)
	if err != nil || r.Text != MsgMissingAPIKey || r.Generated {
		t.Fatalf("missing key report = %+v, %v", r, err)
	}
	if r, _ := noKey.AttendanceAnalysis(ctx); r.Text != MsgMissingAPIKey {
		t.Fatalf("missing key analysis = %+v", r)
	}
	if _, err := noKey.StudentReport(ctx, "UV-0000-1"); err == nil {
		t.Fatal("unknown student should fail before the key check")
	}

	failing := geminiStub(t, http.StatusInternalServerError, `{"error":{"code":500,"message":"boom"}}`, nil)
	broken := NewReportService(env.students, env.exams, env.attendance, env.settings, NewGeminiClient("secret", "test-model", failing.URL, 5*time.Second))
	if r, err := broken.StudentReport(ctx, st.ID); err != nil || r.Text != msgReportFailed {
		t.Fatalf("failed generation = %+v, %v", r, err)
	}
	if r, err := broken.AttendanceAnalysis(ctx); err != nil || r.Text != msgAnalysisFailed {
		t.Fatalf("failed analysis = %+v, %v", r, err)
	}

	empty := geminiStub(t, http.StatusOK, `{"candidates":[]}`, nil)
	silent := NewReportService(env.students, env.exams, env.attendance, env.settings, NewGeminiClient("secret", "test-model", empty.URL, 5*time.Second))
	if r, _ := silent.StudentReport(ctx, st.ID); r.Text != msgReportEmpty {
		t.Fatalf("empty generation = %+v", r)
	}
	if r, _ := silent.AttendanceAnalysis(ctx); r.Text != msgAnalysisEmpty {
		t.Fatalf("empty analysis = %+v", r)
	}
}
