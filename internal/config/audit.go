package config

import "os"

// AuditConfig locates the message broker that receives audit events and the
// file the worker appends them to.  An empty URL disables publishing.
type AuditConfig struct {
	URL     string
	Queue   string
	LogPath string
}

func LoadAuditConfig() AuditConfig {
	url := os.Getenv("RABBITMQ_URL")
	if url == "" {
		url = os.Getenv("AMQP_URL")
	}
	return AuditConfig{
		URL:     url,
		Queue:   envStr("AUDIT_QUEUE", "auth.events"),
		LogPath: envStr("AUDIT_LOG_PATH", "logs/audit.log"),
	}
}
