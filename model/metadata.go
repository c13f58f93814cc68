package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/siherrmann/hrrag/helper"
)

// Metadata represents free-form chunk attributes, stored as JSONB in PostgreSQL
// and as a JSON object in the metadata artifact
type Metadata map[string]interface{}

// Metadata keys set by the loader
const (
	MetadataSection = "section"
	MetadataRow     = "row"
)

// Value implements the driver.Valuer interface for database storage
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements the sql.Scanner interface for database retrieval
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal converts Metadata to JSON bytes, nil becomes an empty object
func (m Metadata) Marshal() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Unmarshal converts JSON bytes, a JSON string or Metadata to Metadata
func (m *Metadata) Unmarshal(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case Metadata:
		*m = v
		return nil
	case string:
		return json.Unmarshal([]byte(v), m)
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
}

// UnmarshalJSON decodes a JSON object. Whole numbers become int and other
// numbers float64, so loader metadata such as row numbers keeps its type.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	for k, v := range raw {
		raw[k] = normalizeNumbers(v)
	}
	*m = Metadata(raw)
	return nil
}

func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.Atoi(t.String()); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}

// GetString returns the value at key if it is a string.
func (m Metadata) GetString(key string) string {
	s, _ := m[key].(string)
	return s
}

// GetInt returns the value at key as an int.
func (m Metadata) GetInt(key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
