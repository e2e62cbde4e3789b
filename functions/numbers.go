package functions

import "strconv"

// numericValue reads a number out of a database record. Postgres numeric
// columns come back as strings, json payloads as float64.
func numericValue(v interface{}) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case int64:
		return float64(value)
	case int:
		return float64(value)
	case string:
		number, _ := strconv.ParseFloat(value, 64)
		return number
	case []byte:
		number, _ := strconv.ParseFloat(string(value), 64)
		return number
	}
	return 0
}
