package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList stores an ordered set of strings as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func (l *StringList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

// TimeList stores an ordered set of timestamps as a JSON text column.
// Reminder lists are kept sorted ascending by the services that write them.
type TimeList []time.Time

func (l TimeList) Value() (driver.Value, error) {
	if l == nil {
		l = TimeList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal time list: %w", err)
	}
	return string(data), nil
}

func (l *TimeList) Scan(src interface{}) error {
	return scanJSON(src, l)
}

func scanJSON(src interface{}, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}
