package config

import (
	"os"
	"testing"
)

func TestInitConfigWritesDefaultFile(t *testing.T) {
	tmpDir := t.TempDir()
	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Cleanup(func() {
		if oldXDG != "" {
			os.Setenv("XDG_CONFIG_HOME", oldXDG)
		} else {
			os.Unsetenv("XDG_CONFIG_HOME")
		}
	})

	path, err := InitConfig(false)
	if err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
}

func TestInitConfigRefusesToOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()
	oldXDG := os.Getenv("XDG_CONFIG_HOME")
	os.Setenv("XDG_CONFIG_HOME", tmpDir)
	t.Cleanup(func() {
		if oldXDG != "" {
			os.Setenv("XDG_CONFIG_HOME", oldXDG)
		} else {
			os.Unsetenv("XDG_CONFIG_HOME")
		}
	})

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("first InitConfig failed: %v", err)
	}
	if _, err := InitConfig(false); !os.IsExist(err) {
		t.Fatalf("expected os.ErrExist on second call without force, got: %v", err)
	}
	if _, err := InitConfig(true); err != nil {
		t.Fatalf("InitConfig with force should overwrite, got: %v", err)
	}
}
