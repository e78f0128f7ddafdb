// Parkwatch - Theme Park Ride Status Monitoring and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/parkwatch

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent represents a security-relevant event on the admin import
// surface, for audit logging.
type SecurityEvent struct {
	// Event is the type of event (e.g., "admin_login", "admin_action_denied").
	Event string
	// Subject is the JWT subject claim (the admin principal), if known.
	Subject string
	// Action is the admin action attempted (e.g. "import.start", "import.cancel").
	Action string
	// ImportID is the target ImportCheckpoint ID, if the action is scoped to one.
	ImportID string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Success indicates if the operation was successful.
	Success bool
	// Error is the error message if the operation failed.
	Error string
}

// SecurityLogger provides secure logging for the admin import surface's
// authentication and authorization events. It automatically sanitizes
// sensitive data before logging.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a new security logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "auth").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// LogEvent logs a security event with automatic sanitization.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	e := l.logger.Info().Str("event", event.Event)

	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}

	if event.Subject != "" {
		e = e.Str("subject", SanitizeUserID(event.Subject))
	}
	if event.Action != "" {
		e = e.Str("action", event.Action)
	}
	if event.ImportID != "" {
		e = e.Str("import_id", event.ImportID)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", SanitizeError(event.Error))
	}

	e.Msg("")
}

// Debug logs a debug-level message.
func (l *SecurityLogger) Debug(msg string, fields ...interface{}) {
	e := l.logger.Debug()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

// Info logs an info-level message.
func (l *SecurityLogger) Info(msg string, fields ...interface{}) {
	e := l.logger.Info()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

// Warn logs a warning-level message.
func (l *SecurityLogger) Warn(msg string, fields ...interface{}) {
	e := l.logger.Warn()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

// Error logs an error-level message.
func (l *SecurityLogger) Error(msg string, fields ...interface{}) {
	e := l.logger.Error()
	e = addFieldPairs(e, fields)
	e.Msg(msg)
}

func addFieldPairs(e *zerolog.Event, fields []interface{}) *zerolog.Event {
	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			e = e.Interface(key, fields[i+1])
		}
	}
	return e
}

// LogLoginSuccess logs a successful admin login.
func (l *SecurityLogger) LogLoginSuccess(subject, ip, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:     "admin_login",
		Subject:   subject,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogLoginFailure logs a failed admin login attempt.
func (l *SecurityLogger) LogLoginFailure(ip, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "admin_login_failed",
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   false,
		Error:     reason,
	})
}

// LogActionDenied logs an authenticated but unauthorized admin action.
func (l *SecurityLogger) LogActionDenied(subject, action, ip string) {
	l.LogEvent(&SecurityEvent{
		Event:     "admin_action_denied",
		Subject:   subject,
		Action:    action,
		IPAddress: ip,
		Success:   false,
	})
}

// LogImportAction logs an admin import-lifecycle action (start, pause,
// resume, cancel) against a specific ImportCheckpoint.
func (l *SecurityLogger) LogImportAction(subject, action, importID, ip string, success bool, errMsg string) {
	l.LogEvent(&SecurityEvent{
		Event:     "admin_import_action",
		Subject:   subject,
		Action:    action,
		ImportID:  importID,
		IPAddress: ip,
		Success:   success,
		Error:     errMsg,
	})
}

// SanitizeToken masks a token, showing only first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUserID masks a user ID for privacy.
func SanitizeUserID(userID string) string {
	if userID == "" {
		return ""
	}
	if len(userID) <= 8 {
		return "***"
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeError removes potentially sensitive information from error messages.
func SanitizeError(err string) string {
	sensitivePatterns := []string{
		"password", "secret", "token", "key", "bearer", "authorization", "cookie",
	}

	lowerErr := strings.ToLower(err)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lowerErr, pattern) {
			return "authentication error"
		}
	}

	return truncateString(err, 200)
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
