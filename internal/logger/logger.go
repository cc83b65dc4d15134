package logger

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"
)

type Fields map[string]any

var log = mustBuild()

func mustBuild() *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	return base.Sugar()
}

var sensitiveKeys = map[string]struct{}{
	"accountnumber":       {},
	"account_number":      {},
	"ifsccode":            {},
	"ifsc_code":           {},
	"upiid":               {},
	"upi_id":              {},
	"paypalemail":         {},
	"paypal_email":        {},
	"accountholdername":   {},
	"account_holder_name": {},
}

func Info(message string, fields Fields) {
	log.Infow(message, flatten(fields)...)
}

func Error(message string, err error, fields Fields) {
	args := flatten(fields)
	if err != nil {
		args = append(args, "error", err.Error())
	}
	log.Errorw(message, args...)
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	_ = log.Sync()
}

// SanitizePayload masks account detail fields before a payload is logged.
func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func flatten(fields Fields) []any {
	sanitized, ok := SanitizePayload(fields).(map[string]any)
	if !ok {
		return nil
	}

	args := make([]any, 0, len(sanitized)*2)
	for k, v := range sanitized {
		args = append(args, k, v)
	}
	return args
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}
