package features

import (
	"strconv"
	"strings"
)

// FeatureRecord is one feature returned by a source. It is not modified
// after decoding.
type FeatureRecord struct {
	ObjectID   int64
	Geometry   *Geometry
	Attributes map[string]interface{}
}

// Attribute looks a field up case-insensitively.
func (r FeatureRecord) Attribute(name string) (interface{}, bool) {
	if v, ok := r.Attributes[name]; ok {
		return v, true
	}
	for k, v := range r.Attributes {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// String returns the field as text, "" when missing or null.
func (r FeatureRecord) String(name string) string {
	v, ok := r.Attribute(name)
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// Float returns the field as a number. Numeric strings are accepted.
func (r FeatureRecord) Float(name string) (float64, bool) {
	v, ok := r.Attribute(name)
	if !ok || v == nil {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
