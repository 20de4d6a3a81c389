package helpers

import "fmt"

// FormatCapitalFlow formats a signed contract-count change with thousand
// separators, e.g. +12,450 or -3,200
func FormatCapitalFlow(netChange int64) string {
	sign := "+"
	value := netChange
	if value < 0 {
		sign = "-"
		value = -value
	}

	// Build the digit string with commas as thousand separators
	str := fmt.Sprintf("%d", value)
	length := len(str)

	if length <= 3 {
		return sign + str
	}

	var result string
	for i, digit := range str {
		if i > 0 && (length-i)%3 == 0 {
			result += ","
		}
		result += string(digit)
	}

	return sign + result
}
