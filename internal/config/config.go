// Package config resolves server settings from defaults, an optional YAML
// file, a .env file and the environment. Command-line flags are applied on
// top by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the server settings.
type Config struct {
	DB          string   `yaml:"db"`
	Addr        string   `yaml:"addr"`
	UploadDir   string   `yaml:"upload_dir"`
	LogPath     string   `yaml:"log"`
	AdminUser   string   `yaml:"admin_user"`
	CORSOrigins []string `yaml:"cors_origins"`
	Debug       bool     `yaml:"debug"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DB:        "najdeno.sqlite3",
		Addr:      ":8080",
		UploadDir: "uploads",
		AdminUser: "Admin",
	}
}

// Load builds a Config. An empty yamlPath skips the file. A missing envFile
// is ignored; variables already set in the process take precedence over it.
func Load(yamlPath, envFile string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		if err := cfg.loadYAML(yamlPath); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
		if m != nil {
			dotenv = m
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	// ${VAR} references are substituted before parsing.
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	host, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		host, port = "", ""
	}
	h, hostSet := lookup("HOST")
	p, portSet := lookup("PORT")
	if hostSet {
		host = h
	}
	if portSet {
		port = p
	}
	if hostSet || portSet {
		c.Addr = net.JoinHostPort(host, port)
	}

	if v, ok := lookup("LOSTFOUND_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup("LOSTFOUND_DB"); ok {
		c.DB = v
	}
	if v, ok := lookup("LOSTFOUND_UPLOAD_DIR"); ok {
		c.UploadDir = v
	}
	if v, ok := lookup("LOSTFOUND_LOG"); ok {
		c.LogPath = v
	}
	if v, ok := lookup("LOSTFOUND_ADMIN_USER"); ok {
		c.AdminUser = v
	}
	if v, ok := lookup("LOSTFOUND_CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := lookup("DEBUG"); ok {
		debug, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parsing DEBUG: %w", err)
		}
		c.Debug = debug
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the settings needed to start the server are present.
func (c *Config) Validate() error {
	if c.DB == "" {
		return errors.New("database path is required")
	}
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.UploadDir == "" {
		return errors.New("upload directory is required")
	}
	if c.AdminUser == "" {
		return errors.New("admin username is required")
	}
	return nil
}
