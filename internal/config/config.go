package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL string // SENTINEL_DATABASE_URL (required)
	HTTPAddr    string // SENTINEL_HTTP_ADDR (default ":8080")
	NATSURL     string // SENTINEL_NATS_URL (optional, empty = no events)
	AuthToken   string // SENTINEL_AUTH_TOKEN (optional, empty = auth disabled)

	DeviceID       string // SENTINEL_DEVICE_ID (default hostname)
	DeviceName     string // SENTINEL_DEVICE_NAME (default = DeviceID)
	DeviceClass    string // SENTINEL_DEVICE_CLASS (default "ip-camera")
	DeviceLocation string // SENTINEL_DEVICE_LOCATION (optional)

	// Sync settings
	SyncInterval time.Duration // SENTINEL_SYNC_INTERVAL (default 30s; 0 = disabled)
	S3Bucket     string        // SENTINEL_S3_BUCKET (enables the remote when set)
	S3Endpoint   string        // SENTINEL_S3_ENDPOINT (custom endpoint for MinIO)
	S3Region     string        // SENTINEL_S3_REGION (default "us-east-1")
	S3Prefix     string        // SENTINEL_S3_PREFIX (default "sentinel")

	RetentionDays int // SENTINEL_RETENTION_DAYS (default 30; 0 = keep forever)
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:    os.Getenv("SENTINEL_DATABASE_URL"),
		HTTPAddr:       envOrDefault("SENTINEL_HTTP_ADDR", ":8080"),
		NATSURL:        os.Getenv("SENTINEL_NATS_URL"),
		AuthToken:      os.Getenv("SENTINEL_AUTH_TOKEN"),
		DeviceID:       os.Getenv("SENTINEL_DEVICE_ID"),
		DeviceName:     os.Getenv("SENTINEL_DEVICE_NAME"),
		DeviceClass:    envOrDefault("SENTINEL_DEVICE_CLASS", "ip-camera"),
		DeviceLocation: os.Getenv("SENTINEL_DEVICE_LOCATION"),
		S3Bucket:       os.Getenv("SENTINEL_S3_BUCKET"),
		S3Endpoint:     os.Getenv("SENTINEL_S3_ENDPOINT"),
		S3Region:       envOrDefault("SENTINEL_S3_REGION", "us-east-1"),
		S3Prefix:       envOrDefault("SENTINEL_S3_PREFIX", "sentinel"),
		RetentionDays:  30,
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("SENTINEL_DATABASE_URL is required")
	}

	if c.DeviceID == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("SENTINEL_DEVICE_ID not set and hostname unavailable: %w", err)
		}
		c.DeviceID = host
	}
	if c.DeviceName == "" {
		c.DeviceName = c.DeviceID
	}

	intervalStr := envOrDefault("SENTINEL_SYNC_INTERVAL", "30s")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("SENTINEL_SYNC_INTERVAL: %w", err)
		}
		c.SyncInterval = d
	}

	if v := os.Getenv("SENTINEL_RETENTION_DAYS"); v != "" {
		var days int
		if _, err := fmt.Sscanf(v, "%d", &days); err != nil || days < 0 {
			return nil, fmt.Errorf("SENTINEL_RETENTION_DAYS: invalid value %q", v)
		}
		c.RetentionDays = days
	}

	// A credentials file can fill in the remote when the environment does
	// not. Environment values win.
	creds, err := loadCredentials()
	if err != nil {
		return nil, err
	}
	if creds != nil {
		if c.S3Bucket == "" {
			c.S3Bucket = creds.Bucket
		}
		if c.S3Endpoint == "" {
			c.S3Endpoint = creds.Endpoint
		}
		if creds.Region != "" && os.Getenv("SENTINEL_S3_REGION") == "" {
			c.S3Region = creds.Region
		}
		if creds.Prefix != "" && os.Getenv("SENTINEL_S3_PREFIX") == "" {
			c.S3Prefix = creds.Prefix
		}
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
