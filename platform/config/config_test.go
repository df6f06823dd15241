package config

import (
	"testing"
	"time"
)

func TestParseStepsOrdersAscendingAndDerivesKeys(t *testing.T) {
	steps, err := parseSteps("reminder", "24h, 2h,4h")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	want := []time.Duration{2 * time.Hour, 4 * time.Hour, 24 * time.Hour}
	for i, step := range steps {
		if step.After != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i, want[i], step.After)
		}
		if step.Template != DefaultReminderTemplate {
			t.Fatalf("step %d: expected default reminder template, got %q", i, step.Template)
		}
	}
	if steps[0].Key != "reminder_2h" {
		t.Fatalf("expected key reminder_2h, got %q", steps[0].Key)
	}
}

func TestParseStepsRejectsInvalidDuration(t *testing.T) {
	if _, err := parseSteps("followup", "72h,soon"); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestParseCadenceFile(t *testing.T) {
	raw := []byte(`
reminders:
  - after: 4h
  - key: first_nudge
    after: 2h
    template: gentle_nudge
followups:
  - after: 72h
`)
	file, err := ParseCadenceFile(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(file.Reminders) != 2 || len(file.Followups) != 1 {
		t.Fatalf("unexpected step counts: %d reminders, %d followups", len(file.Reminders), len(file.Followups))
	}
	if file.Reminders[0].Key != "first_nudge" || file.Reminders[0].Template != "gentle_nudge" {
		t.Fatalf("expected explicit step first, got %+v", file.Reminders[0])
	}
	if file.Followups[0].Template != DefaultFollowupTemplate {
		t.Fatalf("expected default followup template, got %q", file.Followups[0].Template)
	}
}

func TestParseCadenceFileRejectsDuplicateKeys(t *testing.T) {
	raw := []byte(`
reminders:
  - key: nudge
    after: 2h
  - key: nudge
    after: 4h
`)
	if _, err := ParseCadenceFile(raw); err == nil {
		t.Fatal("expected duplicate key error")
	}
}

func TestLoadUsesDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetDistributionFanout() != 3 {
		t.Fatalf("expected fanout 3, got %d", cfg.GetDistributionFanout())
	}
	if cfg.GetResponseWindow() != 24*time.Hour {
		t.Fatalf("expected 24h response window, got %s", cfg.GetResponseWindow())
	}
	if cfg.GetEligibilityCap() != 20 {
		t.Fatalf("expected eligibility cap 20, got %d", cfg.GetEligibilityCap())
	}
	if len(cfg.GetReminderSteps()) != 3 || len(cfg.GetFollowupSteps()) != 2 {
		t.Fatalf("unexpected default cadence steps")
	}
}

func TestLoadRequiresDatabaseURLForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}
