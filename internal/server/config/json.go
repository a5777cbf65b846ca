package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// use timex.Duration so both "1h" and integer nanoseconds are accepted.
// Only fields present with a non-zero value override the current Config.
type JsonConfig struct {
	EndpointAddrGRPC        string         `json:"endpoint_addr_grpc"`
	DatabaseDSN             string         `json:"database_dsn"`
	TokenSecret             string         `json:"token_secret"`
	PasswordPepper          string         `json:"password_pepper"`
	Issuer                  string         `json:"issuer"`
	SessionValidityDuration timex.Duration `json:"session_validity_duration"`
	BlobBackend             string         `json:"blob_backend"`
	BlobDir                 string         `json:"blob_dir"`
	S3RootUser              string         `json:"s3_root_user"`
	S3RootPassword          string         `json:"s3_root_password"`
	S3Bucket                string         `json:"s3_bucket"`
	S3Region                string         `json:"s3_region"`
	S3BaseEndpoint          string         `json:"s3_base_endpoint"`
	MaxUploadSize           int64          `json:"max_upload_size"`
	LogLevel                string         `json:"log_level"`
	LogFormat               string         `json:"log_format"`
}

// parseJson overlays the JSON file named by -c/-config (or FILEVAULT_CONFIG)
// onto config. No file means no changes. An unreadable or invalid file
// panics, matching flag parsing.
func parseJson(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	if err := applyJsonFile(config, path); err != nil {
		panic(err)
	}
}

func applyJsonFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.TokenSecret, c.TokenSecret)
	setString(&config.PasswordPepper, c.PasswordPepper)
	setString(&config.Issuer, c.Issuer)
	if c.SessionValidityDuration.Duration > 0 {
		config.SessionValidityDuration = c.SessionValidityDuration.Duration
	}
	setString(&config.BlobBackend, c.BlobBackend)
	setString(&config.BlobDir, c.BlobDir)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
