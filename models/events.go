package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Resource states reported by object-storage notifications.
const (
	ResourceExists    = "exists"
	ResourceNotExists = "not_exists"
)

// Metageneration counts metadata generations of a stored object. Storage
// notifications send it as a decimal string, older payloads as a number.
type Metageneration int64

func (m *Metageneration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("metageneration: %w", err)
		}
		if raw == "" {
			*m = 0
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("metageneration: invalid value %q: %w", raw, err)
	}
	*m = Metageneration(n)
	return nil
}

// StorageObjectEvent is an object-finalize notification.
type StorageObjectEvent struct {
	Bucket         string         `json:"bucket"`
	Name           string         `json:"name"`
	ContentType    string         `json:"contentType"`
	ResourceState  string         `json:"resourceState"`
	Metageneration Metageneration `json:"metageneration"`
}

// DatabaseEvent is a before/after change notification for one realtime
// database path, e.g. /reservations/-Nx3f.
type DatabaseEvent struct {
	ID     string          `json:"id,omitempty"`
	Path   string          `json:"path"`
	Before json.RawMessage `json:"before,omitempty"`
	After  json.RawMessage `json:"after,omitempty"`
}

// BeforeExists reports whether the path held a value before the change.
func (e DatabaseEvent) BeforeExists() bool { return !isEmptyValue(e.Before) }

// AfterExists reports whether the path holds a value after the change.
func (e DatabaseEvent) AfterExists() bool { return !isEmptyValue(e.After) }

// DecodeAfter unmarshals the after-value into v.
func (e DatabaseEvent) DecodeAfter(v interface{}) error {
	if !e.AfterExists() {
		return fmt.Errorf("DecodeAfter: %s has no value", e.Path)
	}
	if err := json.Unmarshal(e.After, v); err != nil {
		return fmt.Errorf("DecodeAfter: %s: %w", e.Path, err)
	}
	return nil
}

// isEmptyValue treats absent, null, "" and {} as no value, matching how the
// realtime database reports a removed node.
func isEmptyValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", "{}", `""`:
		return true
	}
	return false
}

// MatchPath matches a concrete database path against a pattern such as
// /reservations/{reservationId} and returns the captured parameters.
func MatchPath(pattern, path string) (map[string]string, bool) {
	want := splitPath(pattern)
	got := splitPath(path)
	if len(want) != len(got) {
		return nil, false
	}
	params := make(map[string]string)
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if got[i] == "" {
				return nil, false
			}
			params[seg[1:len(seg)-1]] = got[i]
			continue
		}
		if seg != got[i] {
			return nil, false
		}
	}
	return params, true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
