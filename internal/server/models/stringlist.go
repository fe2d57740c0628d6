package models

import "encoding/json"

// EncodeStringList serializes a list-valued field for storage in a SQL text
// column. Nil and empty lists both encode as "[]".
func EncodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// DecodeStringList parses a serialized list column back into a slice. Blank
// or malformed input decodes as an empty list, never nil.
func DecodeStringList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil || list == nil {
		return []string{}
	}
	return list
}
