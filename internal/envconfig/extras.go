package envconfig

import "math"

// Extra returns the raw extras value for key.
func (e Environment) Extra(key string) (any, bool) {
	v, ok := e.Extras[key]
	return v, ok
}

// ExtraString returns the extras value for key if it is a string.
func (e Environment) ExtraString(key string) (string, bool) {
	v, ok := e.Extras[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// ExtraBool returns the extras value for key if it is a bool.
func (e Environment) ExtraBool(key string) (bool, bool) {
	v, ok := e.Extras[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// ExtraInt returns the extras value for key if it is an integer. JSON decodes
// all numbers to float64, so integral floats are accepted; anything with a
// fractional part is a type mismatch.
func (e Environment) ExtraInt(key string) (int, bool) {
	v, ok := e.Extras[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == math.Trunc(n) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// ExtraFloat returns the extras value for key if it is a number.
func (e Environment) ExtraFloat(key string) (float64, bool) {
	v, ok := e.Extras[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
