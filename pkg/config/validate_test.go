package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Messenger.TLSCertPath = "/etc/satellite/apns.crt"
	cfg.Messenger.TLSKeyPath = "/etc/satellite/apns.key"
	return cfg
}

func TestValidateAcceptsDefaultConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("expected valid config to pass validation, got: %v", err)
	}
}

func TestValidateRejectsInvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "NOISY"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidateRejectsMissingDatabaseDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DSN = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing DSN")
	}
}

func TestValidateRejectsInvalidBatchMode(t *testing.T) {
	cfg := validConfig()
	cfg.Messenger.BatchMode = "carrier-pigeon"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for invalid batch mode")
	}
}

func TestValidateRejectsOutOfRangeMetricsPort(t *testing.T) {
	cfg := validConfig()
	cfg.Metrics.Port = 70000

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for out-of-range metrics port")
	}
}

func TestValidateRejectsNilConfig(t *testing.T) {
	if err := Validate(nil); err == nil {
		t.Fatal("expected validation error for nil config")
	}
}
