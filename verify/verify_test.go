package verify

import (
	"errors"
	"testing"
	"time"

	"github.com/brdoc/padessign/internal/testpki"
)

func TestParsePDFDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			"utc with offset",
			"D:20240102030405+00'00'",
			time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			false,
		},
		{
			"negative offset",
			"D:20240601120000-03'00'",
			time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
			false,
		},
		{
			"zulu",
			"D:20240102030405Z",
			time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			false,
		},
		{
			"no suffix",
			"D:20240102030405",
			time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			false,
		},
		{"too short", "D:2024", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePDFDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePDFDate(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parsePDFDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestReaderUnsigned(t *testing.T) {
	data := testpki.MinimalPDF()
	_, err := Bytes(data)
	if !errors.Is(err, ErrNoSignatures) {
		t.Errorf("expected ErrNoSignatures, got %v", err)
	}
}
