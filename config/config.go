package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	Admin     AdminConfig     `yaml:"admin"`
	Log       LogConfig       `yaml:"log"`
	Report    ReportConfig    `yaml:"report"`
	Jobs      JobsConfig      `yaml:"jobs"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	WebOrigin string `yaml:"web_origin"`
}

// DatabaseConfig 选择存储：postgres 或嵌入式 bolt
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	BoltPath string `yaml:"bolt_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// AdminConfig: 这些邮箱登录即视为管理员
type AdminConfig struct {
	Emails []string `yaml:"emails"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Mode       string `yaml:"mode"` // "development" or "production"
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

type ReportConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

type JobsConfig struct {
	AuditSchedule  string `yaml:"audit_schedule"`
	ReportSchedule string `yaml:"report_schedule"`
}

type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminFullName string `yaml:"admin_full_name"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// LoadEnv 读取 .env；文件不存在不算错误
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// Load reads the YAML file when it exists, then applies environment overrides and defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, errors.Wrap(err, "parse config file")
			}
		case !os.IsNotExist(err):
			return nil, errors.Wrap(err, "read config file")
		}
	}
	cfg.overrideWithEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = cast.ToInt(v)
	}
}

func splitList(csv string) []string {
	var out []string
	for _, s := range strings.Split(csv, ",") {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (c *Config) overrideWithEnv() {
	setString(&c.Database.Driver, "DB_DRIVER")
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")
	setString(&c.Database.BoltPath, "BOLT_PATH")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Redis.DB, "REDIS_DB")

	setInt(&c.Server.Port, "PORT")
	setString(&c.Server.WebOrigin, "WEB_ORIGIN")
	setInt(&c.Session.TTLSeconds, "SESSION_TTL_SECONDS")
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.Admin.Emails = splitList(v)
	}

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Mode, "LOG_MODE")
	if v := os.Getenv("LOG_FILE"); v != "" {
		c.Log.FileEnable = true
		c.Log.Filename = v
	}

	setInt(&c.Report.TTLSeconds, "REPORT_TTL_SECONDS")
	setString(&c.Jobs.AuditSchedule, "AUDIT_SCHEDULE")
	setString(&c.Jobs.ReportSchedule, "REPORT_SCHEDULE")

	setString(&c.Bootstrap.AdminUsername, "BOOTSTRAP_ADMIN_USERNAME")
	setString(&c.Bootstrap.AdminFullName, "BOOTSTRAP_ADMIN_FULL_NAME")
	setString(&c.Bootstrap.AdminEmail, "BOOTSTRAP_ADMIN_EMAIL")
	setString(&c.Bootstrap.AdminPassword, "BOOTSTRAP_ADMIN_PASSWORD")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3001
	}
	if c.Server.WebOrigin == "" {
		c.Server.WebOrigin = "http://localhost:5173"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverPostgres
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.BoltPath == "" {
		c.Database.BoltPath = "data/lab_inventory.db"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Session.TTLSeconds == 0 {
		c.Session.TTLSeconds = 24 * 60 * 60
	}
	for i, e := range c.Admin.Emails {
		c.Admin.Emails[i] = strings.ToLower(strings.TrimSpace(e))
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Mode == "" {
		c.Log.Mode = "development"
	}
	if c.Log.FileEnable && c.Log.Filename == "" {
		c.Log.Filename = "logs/lab_inventory.log"
	}
	if c.Report.TTLSeconds == 0 {
		c.Report.TTLSeconds = 300
	}
	if c.Jobs.AuditSchedule == "" {
		c.Jobs.AuditSchedule = "@every 10m"
	}
	if c.Jobs.ReportSchedule == "" {
		c.Jobs.ReportSchedule = "@every 5m"
	}
	if c.Bootstrap.AdminUsername == "" {
		c.Bootstrap.AdminUsername = "admin"
	}
	if c.Bootstrap.AdminFullName == "" {
		c.Bootstrap.AdminFullName = "Lab Administrator"
	}
	if c.Bootstrap.AdminEmail == "" {
		c.Bootstrap.AdminEmail = "admin@lab.local"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return errors.New("database host is required")
		}
		if c.Database.User == "" {
			return errors.New("database user is required")
		}
		if c.Database.Name == "" {
			return errors.New("database name is required")
		}
	case DriverBolt:
		if c.Database.BoltPath == "" {
			return errors.New("bolt path is required")
		}
	default:
		return errors.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Session.TTLSeconds < 0 || c.Report.TTLSeconds < 0 {
		return errors.New("ttl values cannot be negative")
	}
	return nil
}

// DSN returns the Postgres connection string in key=value form.
func (c *Config) DSN() string {
	d := c.Database
	return "host=" + d.Host + " user=" + d.User + " password=" + d.Password + " dbname=" + d.Name +
		" port=" + cast.ToString(d.Port) + " sslmode=" + d.SSLMode
}

func (c *Config) Addr() string { return ":" + cast.ToString(c.Server.Port) }

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLSeconds) * time.Second
}

func (c *Config) ReportTTL() time.Duration {
	return time.Duration(c.Report.TTLSeconds) * time.Second
}
