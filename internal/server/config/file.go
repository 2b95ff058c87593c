package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/dealflow/internal/flagx"
	"github.com/dmitrijs2005/dealflow/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileWorkflow is the file form of WorkflowConfig. A nil EnforceLockOnSign
// keeps the current value.
type FileWorkflow struct {
	TTL               timex.Duration `json:"ttl" yaml:"ttl"`
	EnforceLockOnSign *bool          `json:"enforce_lock_on_sign" yaml:"enforce_lock_on_sign"`
}

// FileConfig is the DTO read from a JSON or YAML config file. Empty values
// leave the corresponding Config field untouched.
type FileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	S3RootUser                   string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                     string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	PresignValidityDuration      timex.Duration `json:"presign_validity_duration" yaml:"presign_validity_duration"`
	MailAPIBaseURL               string         `json:"mail_api_base_url" yaml:"mail_api_base_url"`
	MailAPIKey                   string         `json:"mail_api_key" yaml:"mail_api_key"`
	MailFrom                     string         `json:"mail_from" yaml:"mail_from"`
	PublicBaseURL                string         `json:"public_base_url" yaml:"public_base_url"`
	RedisAddr                    string         `json:"redis_addr" yaml:"redis_addr"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	LogFormat                    string         `json:"log_format" yaml:"log_format"`
	RunMigrations                *bool          `json:"run_migrations" yaml:"run_migrations"`
	CORSAllowedOrigins           []string       `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`
	SafeWorkflow                 FileWorkflow   `json:"safe_workflow" yaml:"safe_workflow"`
	NoteWorkflow                 FileWorkflow   `json:"note_workflow" yaml:"note_workflow"`
}

// parseFile overlays values from the file named by -c/-config. Files ending
// in .yaml or .yml are read as YAML, anything else as JSON. An unreadable
// or malformed file panics: starting with half a config is worse.
func parseFile(config *Config, args []string) {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	str := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}
	workflow := func(src FileWorkflow, dst *WorkflowConfig) {
		if src.TTL.Duration > 0 {
			dst.TTL = src.TTL.Duration
		}
		if src.EnforceLockOnSign != nil {
			dst.EnforceLockOnSign = *src.EnforceLockOnSign
		}
	}

	str(c.EndpointAddrHTTP, &config.EndpointAddrHTTP)
	str(c.DatabaseDSN, &config.DatabaseDSN)
	str(c.SecretKey, &config.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	str(c.S3RootUser, &config.S3RootUser)
	str(c.S3RootPassword, &config.S3RootPassword)
	str(c.S3Bucket, &config.S3Bucket)
	str(c.S3Region, &config.S3Region)
	str(c.S3BaseEndpoint, &config.S3BaseEndpoint)
	if c.PresignValidityDuration.Duration > 0 {
		config.PresignValidityDuration = c.PresignValidityDuration.Duration
	}
	str(c.MailAPIBaseURL, &config.MailAPIBaseURL)
	str(c.MailAPIKey, &config.MailAPIKey)
	str(c.MailFrom, &config.MailFrom)
	str(c.PublicBaseURL, &config.PublicBaseURL)
	str(c.RedisAddr, &config.RedisAddr)
	str(c.LogLevel, &config.LogLevel)
	str(c.LogFormat, &config.LogFormat)
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
	workflow(c.SafeWorkflow, &config.SafeWorkflow)
	workflow(c.NoteWorkflow, &config.NoteWorkflow)
}
