package logging

import (
	"testing"

	"github.com/sirupsen/logrus"

	"exam_countdown_bot/internal/config"
)

func TestSetupAppliesLevelAndBaseFields(t *testing.T) {
	t.Cleanup(resetLogger)

	entry, err := Setup(config.Config{
		AppEnv:   config.EnvProduction,
		LogLevel: "warn",
	})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	if entry.Logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %v", entry.Logger.GetLevel())
	}
	if entry.Data["service"] != "countdown-bot" {
		t.Fatalf("expected service field, got %v", entry.Data)
	}
	if entry.Data["env"] != config.EnvProduction {
		t.Fatalf("expected env field, got %v", entry.Data)
	}

	if _, ok := entry.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter in production, got %T", entry.Logger.Formatter)
	}
}

func TestSetupUsesTextFormatterInDevelopment(t *testing.T) {
	t.Cleanup(resetLogger)

	entry, err := Setup(config.Config{
		AppEnv:   config.EnvDevelopment,
		LogLevel: "debug",
	})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	if _, ok := entry.Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter in development, got %T", entry.Logger.Formatter)
	}
}

func TestSetupRejectsInvalidLevel(t *testing.T) {
	t.Cleanup(resetLogger)

	if _, err := Setup(config.Config{AppEnv: config.EnvProduction, LogLevel: "shouty"}); err == nil {
		t.Fatalf("expected error for invalid log level")
	}
}

func TestLoggerFallsBackWithoutSetup(t *testing.T) {
	t.Cleanup(resetLogger)
	resetLogger()

	entry := Logger()
	if entry == nil {
		t.Fatalf("expected fallback logger")
	}
	if entry.Data["service"] != "countdown-bot" {
		t.Fatalf("expected service field on fallback logger, got %v", entry.Data)
	}
}

func TestWithContextAttachesNonEmptyFields(t *testing.T) {
	t.Cleanup(resetLogger)

	entry := WithContext(Context{
		ChatID: "C123",
		Kind:   "group",
		Event:  "exam_date_set",
	})

	if entry.Data["chat_id"] != "C123" {
		t.Fatalf("expected chat_id field, got %v", entry.Data)
	}
	if entry.Data["chat_kind"] != "group" {
		t.Fatalf("expected chat_kind field, got %v", entry.Data)
	}
	if entry.Data["event"] != "exam_date_set" {
		t.Fatalf("expected event field, got %v", entry.Data)
	}
}

func TestWithContextOmitsZeroValues(t *testing.T) {
	t.Cleanup(resetLogger)

	entry := WithContext(Context{})

	for _, key := range []string{"chat_id", "chat_kind", "event"} {
		if _, ok := entry.Data[key]; ok {
			t.Fatalf("expected %s to be omitted, got %v", key, entry.Data)
		}
	}
}
