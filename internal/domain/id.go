package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is a remote catalog identifier. The API sends category codes as strings
// ("02") and product keys as numbers, so both decode into the same type.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id: expected string or number, got %s", b)
		}
		*id = ID(n.String())
		return nil
	}
}

func (id ID) String() string { return string(id) }
