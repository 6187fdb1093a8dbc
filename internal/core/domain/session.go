package domain

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	Active       bool      `json:"is_active"`
}

// CleanupStats accumulates expiry sweep results over the store lifetime.
type CleanupStats struct {
	TotalSweeps        int `json:"total_cleanup_operations"`
	TotalExpiredPurged int `json:"total_expired_sessions_removed"`
	AutoCleanupEvery   int `json:"auto_cleanup_interval"`
	OperationCount     int `json:"current_operation_count"`
	NextCleanupIn      int `json:"next_cleanup_in"`
}

type MemoryStats struct {
	TotalSessions         int          `json:"total_sessions"`
	ActiveSessions        int          `json:"active_sessions"`
	ExpiredSessions       int          `json:"expired_sessions"`
	TotalMessages         int          `json:"total_messages"`
	MaxMessagesPerSession int          `json:"max_messages_per_session"`
	SessionTimeout        Duration     `json:"session_timeout"`
	Cleanup               CleanupStats `json:"cleanup_stats"`
}

// Duration marshals as a Go duration string.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}
