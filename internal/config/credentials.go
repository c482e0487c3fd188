package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Credentials is the on-disk remote profile. It lives at
// ~/.local/state/sentinel/credentials.toml (or SENTINEL_CREDENTIALS_FILE)
// and supplies whatever the environment leaves unset.
type Credentials struct {
	Bucket   string `toml:"bucket"`
	Endpoint string `toml:"endpoint,omitempty"`
	Region   string `toml:"region,omitempty"`
	Prefix   string `toml:"prefix,omitempty"`
}

func credentialsPath() (string, error) {
	if p := os.Getenv("SENTINEL_CREDENTIALS_FILE"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "sentinel", "credentials.toml"), nil
}

// loadCredentials returns nil without error when no file exists.
func loadCredentials() (*Credentials, error) {
	path, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if _, err := toml.DecodeFile(path, &creds); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &creds, nil
}

// SaveCredentials writes the remote profile with owner-only permissions.
func SaveCredentials(creds Credentials) error {
	path, err := credentialsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(creds)
}
