package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/maestro/internal/observability"
	"github.com/valter-silva-au/maestro/internal/storage"
)

func withAlerts(t *testing.T, engine observability.AlertEngine) {
	t.Helper()
	orig := AlertEngine
	t.Cleanup(func() { AlertEngine = orig })
	AlertEngine = engine
}

func TestAlertsCmd_NilEngine(t *testing.T) {
	withAlerts(t, nil)

	err := alertsCmd.RunE(alertsCmd, []string{"run-1"})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
}

func TestAlertsCmd_ExplicitRun(t *testing.T) {
	engine := &fakeAlerts{alerts: []observability.Alert{
		{Condition: "task_failures", Severity: observability.SeverityHigh, Message: "2 of 3 tasks failed (66%)", TriggeredAt: time.Now()},
		{Condition: "run_slow", Severity: observability.SeverityLow, Message: "run took 45m0s", TriggeredAt: time.Now()},
	}}
	withAlerts(t, engine)

	var buf bytes.Buffer
	alertsCmd.SetOut(&buf)
	defer alertsCmd.SetOut(nil)

	if err := alertsCmd.RunE(alertsCmd, []string{"run-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.lastRun != "run-1" {
		t.Errorf("evaluated run %q, want run-1", engine.lastRun)
	}
	out := buf.String()
	for _, want := range []string{"2 alert(s) for run run-1", "[HIGH]", "2 of 3 tasks failed", "[LOW]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAlertsCmd_DefaultsToLatestRun(t *testing.T) {
	engine := &fakeAlerts{}
	withAlerts(t, engine)
	now := time.Now().UTC()
	seedHistory(t,
		storage.RunEntry{ID: "older", StartedAt: now.Add(-time.Hour)},
		storage.RunEntry{ID: "latest", StartedAt: now},
	)

	var buf bytes.Buffer
	alertsCmd.SetOut(&buf)
	defer alertsCmd.SetOut(nil)

	if err := alertsCmd.RunE(alertsCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.lastRun != "latest" {
		t.Errorf("evaluated run %q, want latest", engine.lastRun)
	}
	if !strings.Contains(buf.String(), "No alerts for run latest.") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestAlertsCmd_NoRunsRecorded(t *testing.T) {
	withAlerts(t, &fakeAlerts{})
	seedHistory(t)

	err := alertsCmd.RunE(alertsCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "no runs recorded") {
		t.Errorf("expected no runs error, got %v", err)
	}
}

func TestAlertsCmd_EvaluateError(t *testing.T) {
	withAlerts(t, &fakeAlerts{err: fmt.Errorf("log unreadable")})

	err := alertsCmd.RunE(alertsCmd, []string{"run-1"})
	if err == nil || !strings.Contains(err.Error(), "evaluating alerts") {
		t.Errorf("expected evaluating alerts error, got %v", err)
	}
}
