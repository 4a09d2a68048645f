package sensei

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is a decoded JSON object as returned by the partner API.
type Record map[string]any

// GetString returns the value at key rendered as a string, or "".
func (r Record) GetString(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}

	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// GetInt returns the value at key as an int. JSON numbers and numeric strings are accepted.
func (r Record) GetInt(key string) (int, bool) {
	switch v := r[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}

		return int(n), true
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}

		return n, true
	default:
		return 0, false
	}
}

// GetBool returns the value at key as a bool.
func (r Record) GetBool(key string) bool {
	b, ok := r[key].(bool)

	return ok && b
}

// GetRecord returns the nested object at key, or an empty Record.
func (r Record) GetRecord(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return m
	}

	if m, ok := r[key].(Record); ok {
		return m
	}

	return Record{}
}

// Decode converts r into out using JSON field tags.
func (r Record) Decode(out any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("decoding record: %w", err)
	}

	return nil
}

// Meta is the pagination block of a list envelope.
type Meta struct {
	CurrentPage int `json:"current_page" yaml:"current_page"`
	LastPage    int `json:"last_page"    yaml:"last_page"`
	Total       int `json:"total"        yaml:"total"`
	PerPage     int `json:"per_page"     yaml:"per_page"`
}

// Links holds navigation URLs of a list envelope.
type Links map[string]any

// ResourceName names a resource accessor in the static registry.
type ResourceName string

// Registered resource names.
const (
	ResourceProducts ResourceName = "products"
	ResourceUsers    ResourceName = "users"
	ResourcePayments ResourceName = "payments"
	ResourceWebhooks ResourceName = "webhooks"
	ResourceMedia    ResourceName = "media"
	ResourceGuilds   ResourceName = "guilds"
)

// ResourceNames lists every registered resource in a stable order.
func ResourceNames() []ResourceName {
	return []ResourceName{
		ResourceProducts,
		ResourceUsers,
		ResourcePayments,
		ResourceWebhooks,
		ResourceMedia,
		ResourceGuilds,
	}
}
