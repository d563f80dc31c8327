package models

import "encoding/json"

// OptionalString distinguishes an absent JSON field from an explicit
// null. Comment image patches need all three states: absent leaves the
// stored value alone, null clears it, a string replaces it.
type OptionalString struct {
	Present bool
	Value   *string
}

// SomeString returns a present, non-null OptionalString.
func SomeString(s string) OptionalString {
	return OptionalString{Present: true, Value: &s}
}

// NullString returns a present-but-null OptionalString (explicit clear).
func NullString() OptionalString {
	return OptionalString{Present: true}
}

// UnmarshalJSON is only invoked when the field appears in the payload,
// so Present flips to true for both null and string values.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Present || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}
