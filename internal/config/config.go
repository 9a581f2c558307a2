package config

import (
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// Storage selects the durable auth store backend: "pg" or "file".
	Storage       string `yaml:"storage"`
	FileStorePath string `yaml:"file_store_path"`

	SecureCookies bool `yaml:"secure_cookies"`
	// TrustForwardedFor enables client IP extraction from X-Forwarded-For.
	// Only enable behind a reverse proxy that overwrites the header.
	TrustForwardedFor bool `yaml:"trust_forwarded_for"`

	SessionTTLDays       int `yaml:"session_ttl_days"`
	SweepIntervalSeconds int `yaml:"sweep_interval_seconds"`

	OTTTTLSeconds int `yaml:"ott_ttl_seconds"`

	MessageMinLen int `yaml:"message_min_len"`
	MessageMaxLen int `yaml:"message_max_len"`
	HistorySize   int `yaml:"history_size"`

	MuteSeconds int `yaml:"mute_seconds"`

	// Admins lists user ids (emails) granted admin endpoints.
	Admins []string `yaml:"admins"`

	// AllowedOrigins is the CORS allowlist for browser clients.
	AllowedOrigins []string `yaml:"allowed_origins"`

	HTTPAddr string `yaml:"http_addr"`
}

// IsAdmin reports whether a normalized user id is on the admin list.
func (p *Public) IsAdmin(id string) bool {
	for _, admin := range p.Admins {
		if strings.EqualFold(strings.TrimSpace(admin), id) {
			return true
		}
	}
	return false
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Email struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	SenderName string `yaml:"sender_name"`
	Timeout    int    `yaml:"timeout"` // seconds
}

type Private struct {
	Pg    Pg    `yaml:"pg"`
	Email Email `yaml:"email"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Public.SessionTTLDays) * 24 * time.Hour
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Public.SweepIntervalSeconds) * time.Second
}

func (c *Config) OTTTTL() time.Duration {
	return time.Duration(c.Public.OTTTTLSeconds) * time.Second
}

func (c *Config) MuteDuration() time.Duration {
	return time.Duration(c.Public.MuteSeconds) * time.Second
}

func mustLoadPath(configPath string, output interface{}) {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{public, private}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	p := &c.Public
	if p.LogLevel == "" {
		p.LogLevel = "info"
	}
	if p.Storage == "" {
		p.Storage = "pg"
	}
	if p.FileStorePath == "" {
		p.FileStorePath = "data/userAuth.json"
	}
	if p.SessionTTLDays == 0 {
		p.SessionTTLDays = 30
	}
	if p.SweepIntervalSeconds == 0 {
		p.SweepIntervalSeconds = 60
	}
	if p.OTTTTLSeconds == 0 {
		p.OTTTTLSeconds = 300
	}
	if p.MessageMaxLen == 0 {
		p.MessageMaxLen = 2000
	}
	if p.MessageMinLen == 0 {
		p.MessageMinLen = 1
	}
	if p.HistorySize == 0 {
		p.HistorySize = 500
	}
	if p.MuteSeconds == 0 {
		p.MuteSeconds = 120
	}
	if p.HTTPAddr == "" {
		p.HTTPAddr = ":8080"
	}
}
