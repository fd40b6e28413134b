// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for server settings.
//
// IMPORTANT: When changing defaults, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
)

// ServerConfig holds the listener and world defaults.
type ServerConfig struct {
	Port        int    // PORT
	MapDir      string // MAP_DIR: directory searched by the map loader
	DefaultRoom string // room id used when JoinRoom leaves it empty
	DefaultMap  string // map name used when JoinRoom leaves it empty
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3001,
		MapDir:      "./maps",
		DefaultRoom: "room-1",
		DefaultMap:  "dm2",
	}
}

// ServerFromEnv returns server configuration with environment overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if dir := os.Getenv("MAP_DIR"); dir != "" {
		cfg.MapDir = dir
	}
	if room := os.Getenv("DEFAULT_ROOM"); room != "" {
		cfg.DefaultRoom = room
	}
	if m := os.Getenv("DEFAULT_MAP"); m != "" {
		cfg.DefaultMap = m
	}
	return cfg
}

// TurnConfig is forwarded verbatim to the transport collaborator; the
// server itself never dials these.
type TurnConfig struct {
	URL      string // TURN_URL
	Username string // TURN_USERNAME
	Password string // TURN_PASSWORD
}

// TurnFromEnv reads the TURN passthrough settings.
func TurnFromEnv() TurnConfig {
	return TurnConfig{
		URL:      os.Getenv("TURN_URL"),
		Username: os.Getenv("TURN_USERNAME"),
		Password: os.Getenv("TURN_PASSWORD"),
	}
}

// AuditConfig controls the room event audit log.
type AuditConfig struct {
	Path string // EVENT_LOG_PATH; empty keeps counters only
}

// AuditFromEnv reads the audit log settings.
func AuditFromEnv() AuditConfig {
	return AuditConfig{Path: os.Getenv("EVENT_LOG_PATH")}
}

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Server ServerConfig
	Turn   TurnConfig
	Audit  AuditConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Server: ServerFromEnv(),
		Turn:   TurnFromEnv(),
		Audit:  AuditFromEnv(),
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}
