package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TikaModeServer = "server"
	TikaModeJar    = "jar"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"

	DefaultPublicPackage = "extractor"
)

// Storage describes one addressable file storage for "storage:<id>:<path>" references.
type Storage struct {
	ID        string `yaml:"id" json:"id"`
	Driver    string `yaml:"driver" json:"driver"`
	BasePath  string `yaml:"base_path" json:"base_path,omitempty"`
	PublicURL string `yaml:"public_url" json:"public_url,omitempty"`
	Bucket    string `yaml:"bucket" json:"bucket,omitempty"`
	Region    string `yaml:"region" json:"region,omitempty"`
	AccessKey string `yaml:"access_key" json:"-"`
	SecretKey string `yaml:"secret_key" json:"-"`
	Endpoint  string `yaml:"endpoint" json:"endpoint,omitempty"`
}

type Config struct {
	ToolsExifTool   string        `yaml:"tools_exiftool" json:"tools_exiftool"`
	ToolsPdfinfo    string        `yaml:"tools_pdfinfo" json:"tools_pdfinfo"`
	ToolsJava       string        `yaml:"tools_java" json:"tools_java"`
	TikaJarPath     string        `yaml:"tika_jar_path" json:"tika_jar_path"`
	TikaMode        string        `yaml:"tika_mode" json:"tika_mode"`
	ServiceTikaURL  string        `yaml:"service_tika_url" json:"service_tika_url"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	PublicPackage   string        `yaml:"public_package" json:"public_package"`
	PublicDir       string        `yaml:"public_dir" json:"public_dir"`
	PublicURLPrefix string        `yaml:"public_url_prefix" json:"public_url_prefix"`
	Storages        []Storage     `yaml:"storages" json:"storages"`
	LogFile         string        `yaml:"log_file" json:"log_file"`
	LogJSON         bool          `yaml:"log_json" json:"log_json"`
	ListenAddr      string        `yaml:"listen_addr" json:"listen_addr"`
	JWTSecret       string        `yaml:"jwt_secret" json:"-"`
	Jobs            int           `yaml:"jobs" json:"jobs"`
}

func DefaultConfig() *Config {
	jobs := runtime.NumCPU()
	if jobs < 1 {
		jobs = 4
	}

	homeDir, _ := os.UserHomeDir()
	stateDir := filepath.Join(homeDir, ".metaprobe")

	return &Config{
		ToolsExifTool:   "/usr/bin/exiftool",
		ToolsPdfinfo:    "/usr/bin/pdfinfo",
		ToolsJava:       "/usr/bin/java",
		TikaMode:        TikaModeServer,
		ServiceTikaURL:  "http://localhost:9998",
		Timeout:         30 * time.Second,
		PublicPackage:   DefaultPublicPackage,
		PublicDir:       "Resources/Public",
		PublicURLPrefix: "/_assets/extractor",
		LogFile:         filepath.Join(stateDir, "metaprobe.log"),
		LogJSON:         false,
		ListenAddr:      "localhost:8080",
		Jobs:            jobs,
	}
}

func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var envOverrides = []struct {
	key   string
	apply func(c *Config, v string)
}{
	{"METAPROBE_TOOLS_EXIFTOOL", func(c *Config, v string) { c.ToolsExifTool = v }},
	{"METAPROBE_TOOLS_PDFINFO", func(c *Config, v string) { c.ToolsPdfinfo = v }},
	{"METAPROBE_TOOLS_JAVA", func(c *Config, v string) { c.ToolsJava = v }},
	{"METAPROBE_TIKA_JAR_PATH", func(c *Config, v string) { c.TikaJarPath = v }},
	{"METAPROBE_TIKA_MODE", func(c *Config, v string) { c.TikaMode = v }},
	{"METAPROBE_SERVICE_TIKA_URL", func(c *Config, v string) { c.ServiceTikaURL = v }},
	{"METAPROBE_LISTEN_ADDR", func(c *Config, v string) { c.ListenAddr = v }},
	{"METAPROBE_JWT_SECRET", func(c *Config, v string) { c.JWTSecret = v }},
	{"METAPROBE_LOG_FILE", func(c *Config, v string) { c.LogFile = v }},
}

// ApplyEnv overrides settings from the environment. A .env file in the working
// directory is loaded first when present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load()

	for _, o := range envOverrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			o.apply(c, v)
		}
	}
}

func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return &ValidationError{Field: "timeout", Message: "timeout must not be negative"}
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Jobs < 1 {
		c.Jobs = 1
	}

	c.TikaMode = strings.ToLower(strings.TrimSpace(c.TikaMode))
	switch c.TikaMode {
	case "":
		c.TikaMode = TikaModeServer
	case TikaModeServer, TikaModeJar:
	default:
		return &ValidationError{Field: "tika_mode", Message: "tika_mode must be server or jar"}
	}

	seen := make(map[string]bool)
	for i := range c.Storages {
		s := &c.Storages[i]
		if s.ID == "" {
			return &ValidationError{Field: "storages", Message: "storage id is required"}
		}
		if seen[s.ID] {
			return &ValidationError{Field: "storages", Message: "duplicate storage id: " + s.ID}
		}
		seen[s.ID] = true

		if s.Driver == "" {
			s.Driver = StorageDriverLocal
		}
		switch s.Driver {
		case StorageDriverLocal:
			if s.BasePath == "" {
				return &ValidationError{Field: "storages", Message: "base_path is required for local storage " + s.ID}
			}
		case StorageDriverS3:
			if s.Bucket == "" {
				return &ValidationError{Field: "storages", Message: "bucket is required for s3 storage " + s.ID}
			}
			if s.Region == "" {
				s.Region = "us-east-1"
			}
		default:
			return &ValidationError{Field: "storages", Message: "unknown storage driver: " + s.Driver}
		}
	}

	if c.LogFile == "" {
		homeDir, _ := os.UserHomeDir()
		c.LogFile = filepath.Join(homeDir, ".metaprobe", "metaprobe.log")
	}
	if c.ListenAddr == "" {
		c.ListenAddr = "localhost:8080"
	}
	if c.PublicPackage == "" {
		c.PublicPackage = DefaultPublicPackage
	}

	return nil
}

// Storage returns the storage with the given id.
func (c *Config) Storage(id string) (Storage, bool) {
	for _, s := range c.Storages {
		if s.ID == id {
			return s, true
		}
	}
	return Storage{}, false
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
