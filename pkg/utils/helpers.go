package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateRequestID generates a unique request ID for tracking
func GenerateRequestID() string {
	return uuid.New().String()
}

// GenerateMatchProcessID generates a process ID for background match tasks
func GenerateMatchProcessID() string {
	return "match_" + uuid.New().String()
}

// GenerateSweepProcessID generates a process ID for background sweep tasks
func GenerateSweepProcessID() string {
	return "sweep_" + uuid.New().String()
}

// GenerateTimestamp returns the storage timestamp key format (YYYYMMDD_HHMMSS)
// used for CV snapshots and match result artifacts
func GenerateTimestamp() string {
	return time.Now().UTC().Format("20060102_150405")
}

// FormatDuration formats a duration to a human-readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// Contains checks if a string slice contains a specific string
func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// GetStringOrDefault returns the value if not empty, otherwise returns the default
func GetStringOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
