package config

import (
	"os"
	"strings"
)

// Environment variables that override file values.
const (
	EnvAPIToken  = "HLSFORGE_API_TOKEN"
	EnvAPIBind   = "HLSFORGE_API_BIND"
	EnvStoreDSN  = "HLSFORGE_STORE_DSN"
	EnvNtfyTopic = "HLSFORGE_NTFY_TOPIC"
)

func (c *Config) applyEnv() {
	if value, ok := lookupEnv(EnvAPIToken); ok {
		c.Paths.APIToken = value
	}
	if value, ok := lookupEnv(EnvAPIBind); ok {
		c.Paths.APIBind = value
	}
	if value, ok := lookupEnv(EnvStoreDSN); ok {
		c.Store.DSN = value
	}
	if value, ok := lookupEnv(EnvNtfyTopic); ok {
		c.Notifications.NtfyTopic = value
	}
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}
