package helpers

import "testing"

func TestFormatCapitalFlow(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "+0"},
		{950, "+950"},
		{-950, "-950"},
		{12450, "+12,450"},
		{-3200, "-3,200"},
		{1234567, "+1,234,567"},
		{-1000000, "-1,000,000"},
	}

	for _, tt := range tests {
		if got := FormatCapitalFlow(tt.input); got != tt.want {
			t.Errorf("FormatCapitalFlow(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
