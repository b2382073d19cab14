package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigFileEnv names the optional YAML file whose entries act as defaults for
// the environment variables below.
const ConfigFileEnv = "SNAKEAID_CONFIG"

// Config aggregates every setting of the relay and the reference responder.
type Config struct {
	Server    ServerConfig
	Relay     RelayConfig
	Responder ResponderConfig
	Log       LogConfig
}

// Load reads the configuration from the environment, falling back to the file
// named by SNAKEAID_CONFIG for unset keys.
func Load() (*Config, error) {
	src := source(os.LookupEnv)
	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		defaults, err := readFileDefaults(path)
		if err != nil {
			return nil, err
		}
		src = src.withDefaults(defaults)
	}
	return load(src)
}

func load(src source) (*Config, error) {
	server, err := loadServerConfig(src)
	if err != nil {
		return nil, err
	}

	relay, err := loadRelayConfig(src)
	if err != nil {
		return nil, err
	}

	responder, err := loadResponderConfig(src)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Relay:     relay,
		Responder: responder,
		Log:       loadLogConfig(src),
	}, nil
}

// ServerConfig holds the listen addresses of both HTTP services.
type ServerConfig struct {
	Addr          string
	ResponderAddr string
}

func loadServerConfig(src source) (ServerConfig, error) {
	addr, err := src.parseAddr("PORT", "8080")
	if err != nil {
		return ServerConfig{}, err
	}

	responderAddr, err := src.parseAddr("RESPONDER_PORT", "5000")
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{Addr: addr, ResponderAddr: responderAddr}, nil
}

// RelayConfig describes how the front-end reaches the responder.
type RelayConfig struct {
	SendURL  string
	ResetURL string
	SenderID string
	Timeout  time.Duration
}

func loadRelayConfig(src source) (RelayConfig, error) {
	timeout, err := src.parseDurationEnv("RELAY_TIMEOUT", 0)
	if err != nil {
		return RelayConfig{}, err
	}
	if timeout < 0 {
		return RelayConfig{}, fmt.Errorf("invalid RELAY_TIMEOUT value %q: must not be negative", timeout)
	}

	return RelayConfig{
		SendURL:  src.getEnvOrDefault("RELAY_SEND_URL", "http://localhost:5000/sms"),
		ResetURL: src.getEnvOrDefault("RELAY_RESET_URL", "http://localhost:5000/reset"),
		SenderID: src.getEnvOrDefault("RELAY_SENDER_ID", "web-user"),
		Timeout:  timeout,
	}, nil
}

// LogConfig selects verbosity and output format.
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig(src source) LogConfig {
	return LogConfig{
		Level:  strings.ToLower(src.getEnvOrDefault("LOG_LEVEL", "info")),
		Format: strings.ToLower(src.getEnvOrDefault("LOG_FORMAT", "console")),
	}
}

// source looks configuration keys up; the environment in production.
type source func(key string) (string, bool)

func (s source) withDefaults(defaults map[string]string) source {
	return func(key string) (string, bool) {
		if value, ok := s(key); ok && strings.TrimSpace(value) != "" {
			return value, true
		}
		value, ok := defaults[key]
		return value, ok
	}
}

func (s source) get(key string) string {
	value, _ := s(key)
	return strings.TrimSpace(value)
}

func (s source) getEnvOrDefault(key, defaultValue string) string {
	if value := s.get(key); value != "" {
		return value
	}
	return defaultValue
}

// parseAddr accepts "8080", ":8080" or "127.0.0.1:8080".
func (s source) parseAddr(key, defaultPort string) (string, error) {
	port := s.getEnvOrDefault(key, defaultPort)

	if strings.Contains(port, ":") {
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid %s value: %q", key, port)
	}

	return ":" + port, nil
}

func (s source) parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := s.get(key)
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func (s source) parseOptionalFloatEnv(key string) (*float64, error) {
	value := s.get(key)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func (s source) parseOptionalIntEnv(key string) (*int, error) {
	value := s.get(key)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func (s source) parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := s.get(key)
	if value == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return val, nil
}
