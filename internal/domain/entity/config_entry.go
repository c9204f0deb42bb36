package entity

import "time"

// ConfigValueType tags how a ConfigEntry's raw string should be parsed.
type ConfigValueType string

const (
	ConfigValueTypeString   ConfigValueType = "string"
	ConfigValueTypeInt      ConfigValueType = "int"
	ConfigValueTypeFloat    ConfigValueType = "float"
	ConfigValueTypeBool     ConfigValueType = "bool"
	ConfigValueTypeDuration ConfigValueType = "duration"
)

// ConfigEntry is a runtime-tunable key in the persisted configuration
// table: scoring weights, thresholds, caps, window defaults. Writes take
// effect within one polling cycle of the reading service (hot-reload).
type ConfigEntry struct {
	Key       string
	Value     string
	ValueType ConfigValueType
	UpdatedAt time.Time
	UpdatedBy string
}

// Validate checks that the entry carries a known value type.
func (c *ConfigEntry) Validate() error {
	if c.Key == "" {
		return &ValidationError{Field: "key", Message: "must not be empty"}
	}
	switch c.ValueType {
	case ConfigValueTypeString, ConfigValueTypeInt, ConfigValueTypeFloat, ConfigValueTypeBool, ConfigValueTypeDuration:
	default:
		return &ValidationError{Field: "value_type", Message: "unrecognized config value type"}
	}
	return nil
}
