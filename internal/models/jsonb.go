package models

import (
	"encoding/json"
	"fmt"
)

// scanJSON decodes a JSONB column into dst.
func scanJSON(src interface{}, dst interface{}) error {
	if src == nil {
		return nil
	}
	switch data := src.(type) {
	case []byte:
		return json.Unmarshal(data, dst)
	case string:
		return json.Unmarshal([]byte(data), dst)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
