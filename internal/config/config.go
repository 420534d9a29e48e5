// Package config provides configuration for the call control service.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the call control configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Storage
	ConversationDir string
	StoreDriver     string // "file" or "sqlite"
	DatabaseURL     string

	// Telephony engine (Asterisk Manager Interface)
	AMIAddr       string
	AMIUsername   string
	AMISecret     string
	EngineTimeout time.Duration

	// Dial defaults
	Trunk            string
	DefaultContext   string
	DefaultExtension string
	DefaultCallerID  string

	// Completion webhooks
	NotifyTimeout time.Duration

	// Dial policy override (rego source file)
	DialPolicyFile string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnvInt("HTTP_PORT", 3030),
		ConversationDir:  getEnv("CONVERSATION_DIR", "./conversations"),
		StoreDriver:      getEnv("STORE_DRIVER", "file"),
		DatabaseURL:      getEnv("DATABASE_URL", "file:callcontrol.db?cache=shared&mode=rwc"),
		AMIAddr:          getEnv("AMI_ADDR", "127.0.0.1:5038"),
		AMIUsername:      getEnv("AMI_USERNAME", "callcontrol"),
		AMISecret:        getEnv("AMI_SECRET", ""),
		EngineTimeout:    time.Duration(getEnvInt("ENGINE_TIMEOUT_MS", 10000)) * time.Millisecond,
		Trunk:            getEnv("PJSIP_TRUNK", "twilio-endpoint"),
		DefaultContext:   getEnv("DEFAULT_CONTEXT", "outbound-ai-test"),
		DefaultExtension: getEnv("DEFAULT_EXTENSION", "s"),
		DefaultCallerID:  getEnv("DEFAULT_CALLER_ID", ""),
		NotifyTimeout:    time.Duration(getEnvInt("NOTIFY_TIMEOUT_MS", 10000)) * time.Millisecond,
		DialPolicyFile:   getEnv("DIAL_POLICY_FILE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
