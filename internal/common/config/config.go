package config

import (
	"fmt"
	"time"
)

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Loan          LoanConfig              `mapstructure:"loan"`
	Identity      IdentityConfig          `mapstructure:"identity"`
	Verification  VerificationConfig      `mapstructure:"verification"`
	Wizard        WizardConfig            `mapstructure:"wizard"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Search        SearchConfig            `mapstructure:"search"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// LoanConfig bounds the quote step. Rates are decimal strings, e.g. "0.10".
type LoanConfig struct {
	MinAmount  int64  `mapstructure:"min_amount"`
	MaxAmount  int64  `mapstructure:"max_amount"`
	ShortRate  string `mapstructure:"short_rate"`
	MediumRate string `mapstructure:"medium_rate"`
	Currency   string `mapstructure:"currency"`
}

type IdentityConfig struct {
	MaxBytes    int64 `mapstructure:"max_bytes"`
	MinWidth    int   `mapstructure:"min_width"`
	MinHeight   int   `mapstructure:"min_height"`
	MaxEdge     int   `mapstructure:"max_edge"`
	JPEGQuality int   `mapstructure:"jpeg_quality"`
}

type VerificationConfig struct {
	Mode    string `mapstructure:"mode"`     // allowlist | issued
	CodeTTL int    `mapstructure:"code_ttl"` // seconds
}

type WizardConfig struct {
	SessionTTL int `mapstructure:"session_ttl"` // seconds
}

type NotificationConfig struct {
	Email struct {
		Enabled    bool   `mapstructure:"enabled"`
		FromEmail  string `mapstructure:"from_email"`
		BackOffice string `mapstructure:"back_office"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	WhatsAppContact string `mapstructure:"whatsapp_contact"`
}

type StorageConfig struct {
	GCS struct {
		Enabled bool   `mapstructure:"enabled"`
		Bucket  string `mapstructure:"bucket"`
		Prefix  string `mapstructure:"prefix"`
	} `mapstructure:"gcs"`
}

type SearchConfig struct {
	Backend string `mapstructure:"backend"` // postgres | elasticsearch
	Index   string `mapstructure:"index"`
	Limit   int    `mapstructure:"limit"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (v VerificationConfig) TTL() time.Duration {
	return time.Duration(v.CodeTTL) * time.Second
}

func (w WizardConfig) TTL() time.Duration {
	return time.Duration(w.SessionTTL) * time.Second
}
