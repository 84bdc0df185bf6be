package config

import (
	"fmt"
	"time"
)

type Config struct {
	Server      ServerConfig      `json:"server"`
	Upload      UploadConfig      `json:"upload"`
	Storage     StorageConfig     `json:"storage"`
	Image       ImageConfig       `json:"image"`
	File        FileConfig        `json:"file"`
	Redis       RedisConfig       `json:"redis"`
	Invalidator InvalidatorConfig `json:"invalidator"`
	Sentry      SentryConfig      `json:"sentry"`
}

type ServerConfig struct {
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type UploadConfig struct {
	MaxRequestBodyMB     int64 `json:"max_request_body"`
	MaxMultipartMemoryMB int64 `json:"max_multipart_memory"`
}

type StorageConfig struct {
	Root string `json:"root"` // root of the sharded asset tree
}

// Format is one configured derivative output.
type Format struct {
	Ext     string `json:"ext"`
	Quality int    `json:"quality"`
}

// ImageConfig drives the upload ingestor and the transform engine. It
// is built once and passed by reference; nothing reads it ambiently.
type ImageConfig struct {
	// MimeTypes maps allow-listed declared MIME types to the stored
	// extension. Extensions never come from client filenames.
	MimeTypes map[string]string `json:"mime_types"`
	// Formats lists the derivative outputs in generation order.
	Formats []Format `json:"formats"`
	// Format is the primary derivative extension used by listings.
	Format    string `json:"format"`
	MaxWidth  int    `json:"max_width"`
	MaxHeight int    `json:"max_height"`
}

// FileConfig is the document counterpart of ImageConfig.
type FileConfig struct {
	MimeTypes map[string]string `json:"mime_types"`
}

type RedisConfig struct {
	Password            string        `json:"password"`
	DatabaseID          int           `json:"database_id"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DialTimeout         time.Duration `json:"dial_timeout"`
	ReadTimeout         time.Duration `json:"read_timeout"`
	WriteTimeout        time.Duration `json:"write_timeout"`
	PoolSize            int           `json:"pool_size"`
	Nodes               []RedisNode   `json:"nodes"`
}

type RedisNode struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (n RedisNode) Addr() string { return fmt.Sprintf("%s:%d", n.Host, n.Port) }

// InvalidatorConfig drives the cache-invalidation stream worker.
type InvalidatorConfig struct {
	Namespace    string        `json:"namespace"`     // gateway cache key namespace
	Stream       string        `json:"stream"`        // redis stream name
	Group        string        `json:"group"`         // consumer group name
	Workers      int           `json:"workers"`       // number of concurrent goroutines
	MaxAttempts  int           `json:"max_attempts"`  // max retries before giving up
	MaxLen       int64         `json:"max_len"`       // stream max length before trim
	BackoffBase  time.Duration `json:"backoff_base"`  // base retry delay
	BlockTimeout time.Duration `json:"block_timeout"` // XREADGROUP block timeout
	Consumer     string        `json:"consumer"`
}

type SentryConfig struct {
	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
}

// Defaults returns the built-in allow-lists and derivative formats;
// values from the configuration file override them.
func Defaults() *Config {
	return &Config{
		Image: ImageConfig{
			MimeTypes: map[string]string{
				"image/jpeg": "jpg",
				"image/png":  "png",
				"image/gif":  "gif",
				"image/webp": "webp",
			},
			Formats: []Format{
				{Ext: "webp", Quality: 90},
				{Ext: "jpg", Quality: 85},
			},
			Format:    "webp",
			MaxWidth:  2500,
			MaxHeight: 2500,
		},
		File: FileConfig{
			MimeTypes: map[string]string{
				"application/pdf": "pdf",
			},
		},
	}
}
