package main

import (
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/groblegark/sentinel/internal/config"
)

func TestConfigureCommand_WritesProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.toml")
	t.Setenv("SENTINEL_CREDENTIALS_FILE", path)

	if err := configureCmd.Flags().Set("endpoint", "http://localhost:9000"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := configureCmd.Flags().Set("prefix", "site-a"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := configureCmd.RunE(configureCmd, []string{"cam-events"}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	var creds config.Credentials
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if creds.Bucket != "cam-events" || creds.Endpoint != "http://localhost:9000" || creds.Prefix != "site-a" {
		t.Errorf("profile = %+v, wrong values", creds)
	}
}
