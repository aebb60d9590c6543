package sign

import (
	"strings"
	"testing"
	"time"
)

func TestPDFString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain ascii", "John Doe", "(John Doe)"},
		{"escaped parens", "a(b)c", "(a\\(b\\)c)"},
		{"escaped backslash", "a\\b", "(a\\\\b)"},
		{"carriage return", "a\rb", "(a\\rb)"},
		{"empty", "", "()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pdfString(tt.input); got != tt.expected {
				t.Errorf("pdfString(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPDFStringUnicode(t *testing.T) {
	got := pdfString("João da Silva")
	if !strings.HasPrefix(got, "(\xfe\xff") {
		t.Errorf("non-ASCII string must be UTF-16BE with BOM, got %q", got)
	}
	if !strings.HasSuffix(got, ")") {
		t.Errorf("string literal must be closed, got %q", got)
	}
}

func TestPDFDateTime(t *testing.T) {
	loc := time.FixedZone("", -3*3600)
	date := time.Date(2024, 5, 17, 14, 30, 45, 0, loc)

	got := pdfDateTime(date)
	want := "(D:20240517143045-03'00')"
	if got != want {
		t.Errorf("pdfDateTime() = %q, want %q", got, want)
	}
}

func TestPDFDateTimeUTC(t *testing.T) {
	date := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	got := pdfDateTime(date)
	want := "(D:20240102030405+00'00')"
	if got != want {
		t.Errorf("pdfDateTime() = %q, want %q", got, want)
	}
}
