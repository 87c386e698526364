package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList stores a string slice as a JSON array column (jsonb on Postgres, text on SQLite).
type StringList []string

// Value implements the driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([]string(l)); err != nil {
		return nil, err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Scan implements the sql.Scanner interface
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for StringList", value)
	}

	return json.Unmarshal(raw, l)
}

// Steps is an ordered list of instructions persisted as newline-separated text.
// Steps never contain a newline themselves.
type Steps []string

// Value implements the driver.Valuer interface
func (s Steps) Value() (driver.Value, error) {
	return strings.Join(s, "\n"), nil
}

// Scan implements the sql.Scanner interface
func (s *Steps) Scan(value interface{}) error {
	var text string
	switch v := value.(type) {
	case nil:
		*s = Steps{}
		return nil
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		return fmt.Errorf("unsupported type %T for Steps", value)
	}

	steps := Steps{}
	for _, line := range strings.Split(text, "\n") {
		if line != "" {
			steps = append(steps, line)
		}
	}
	*s = steps
	return nil
}
