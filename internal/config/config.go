package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Addr           string
	DatabaseURL    string
	MigrationsDir  string
	CORSOrigin     string
	BodyLimitBytes int64
	// Redis backs the per-report submit lock. Empty keeps the lock in-process.
	RedisURL       string
	MeiliURL       string
	MeiliMasterKey string
	// MinIO archive for submitted PDFs. Empty endpoint disables archiving.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	HistoryDir     string
	// SMTP - email disabled if host is empty
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	LogLevel      string
	LogFormat     string
	PDFRenderer   string
	RenderTimeout time.Duration
	// Client side: where drafts are sent and where the local backup lives.
	ServerURL     string
	LocalDB       string
	ClientTimeout time.Duration
}

var defaults = map[string]any{
	"addr":             ":3000",
	"database-url":     "",
	"migrations-dir":   "./db/migrations",
	"cors-origin":      "*",
	"body-limit-bytes": int64(4 << 20),
	"redis-url":        "",
	"meili-url":        "",
	"meili-master-key": "",
	"minio-endpoint":   "",
	"minio-access-key": "",
	"minio-secret-key": "",
	"minio-bucket":     "lab-reports",
	"minio-use-ssl":    false,
	"history-dir":      "",
	"smtp-host":        "",
	"smtp-port":        "587",
	"smtp-username":    "",
	"smtp-password":    "",
	"smtp-from":        "",
	"smtp-from-name":   "Lab Notebook",
	"log-level":        "info",
	"log-format":       "json",
	"pdf-renderer":     "auto",
	"render-timeout":   45 * time.Second,
	"server-url":       "http://localhost:3000",
	"local-db":         "./labreport-local.db",
	"client-timeout":   10 * time.Second,
}

// NewViper returns a viper instance reading LAB_* environment variables and
// an optional labreport.{yaml,json,toml} file.
func NewViper() (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("LAB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("labreport")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/labreport")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

func Load(v *viper.Viper) Config {
	return Config{
		Addr:           v.GetString("addr"),
		DatabaseURL:    strings.TrimSpace(v.GetString("database-url")),
		MigrationsDir:  v.GetString("migrations-dir"),
		CORSOrigin:     v.GetString("cors-origin"),
		BodyLimitBytes: positiveInt64(v.GetInt64("body-limit-bytes"), 4<<20),
		RedisURL:       strings.TrimSpace(v.GetString("redis-url")),
		MeiliURL:       strings.TrimSpace(v.GetString("meili-url")),
		MeiliMasterKey: v.GetString("meili-master-key"),
		MinioEndpoint:  strings.TrimSpace(v.GetString("minio-endpoint")),
		MinioAccessKey: v.GetString("minio-access-key"),
		MinioSecretKey: v.GetString("minio-secret-key"),
		MinioBucket:    v.GetString("minio-bucket"),
		MinioUseSSL:    v.GetBool("minio-use-ssl"),
		HistoryDir:     strings.TrimSpace(v.GetString("history-dir")),
		SMTPHost:       v.GetString("smtp-host"),
		SMTPPort:       v.GetString("smtp-port"),
		SMTPUsername:   v.GetString("smtp-username"),
		SMTPPassword:   v.GetString("smtp-password"),
		SMTPFrom:       v.GetString("smtp-from"),
		SMTPFromName:   v.GetString("smtp-from-name"),
		LogLevel:       v.GetString("log-level"),
		LogFormat:      v.GetString("log-format"),
		PDFRenderer:    strings.ToLower(strings.TrimSpace(v.GetString("pdf-renderer"))),
		RenderTimeout:  v.GetDuration("render-timeout"),
		ServerURL:      v.GetString("server-url"),
		LocalDB:        v.GetString("local-db"),
		ClientTimeout:  v.GetDuration("client-timeout"),
	}
}

func positiveInt64(value, fallback int64) int64 {
	if value <= 0 {
		return fallback
	}
	return value
}
