package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ReadString returns the first non-empty string coercion among the candidate
// keys. API responses mix snake_case and camelCase field names, so callers
// pass both spellings.
func ReadString(body map[string]any, keys ...string) string {
	for _, key := range keys {
		raw, ok := body[key]
		if !ok {
			continue
		}
		if value := coerceString(raw); value != "" {
			return value
		}
	}
	return ""
}

// ReadInt returns the first integer coercion among the candidate keys, or
// fallback when none of them carry a usable value.
func ReadInt(body map[string]any, fallback int, keys ...string) int {
	for _, key := range keys {
		raw, ok := body[key]
		if !ok {
			continue
		}
		if value, valid := coerceInt(raw); valid {
			return value
		}
	}
	return fallback
}

// ReadBool returns the first boolean coercion among the candidate keys, or
// fallback when none are present.
func ReadBool(body map[string]any, fallback bool, keys ...string) bool {
	for _, key := range keys {
		raw, ok := body[key]
		if !ok {
			continue
		}
		return coerceBool(raw)
	}
	return fallback
}

func coerceString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func coerceInt(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int64:
		return int(typed), true
	case float64:
		return int(typed), true
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return int(parsed), true
		}
		if parsed, err := typed.Float64(); err == nil {
			return int(parsed), true
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(typed)); err == nil {
			return parsed, true
		}
	}
	return 0, false
}

func coerceBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	case json.Number:
		parsed, err := typed.Int64()
		return err == nil && parsed != 0
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return false
	}
}

func copyAnyMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

// CopyMap returns a shallow copy so callers can hold response payloads
// without sharing mutable state.
func CopyMap(src map[string]any) map[string]any {
	return copyAnyMap(src)
}
