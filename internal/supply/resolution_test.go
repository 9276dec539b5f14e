package supply

import (
	"errors"
	"testing"
)

func TestParseResolution(t *testing.T) {
	tests := []struct {
		input string
		want  Resolution
	}{
		{"confirmed", Confirmed()},
		{"removed", Removed()},
		{"relocated-to:B2", RelocatedTo("B2")},
		{"relocated-to:DD14", RelocatedTo("DD14")},
	}

	for _, tt := range tests {
		got, err := ParseResolution(tt.input)
		if err != nil {
			t.Errorf("ParseResolution(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseResolution(%q) = %+v, want %+v", tt.input, got, tt.want)
		}
		if got.String() != tt.input {
			t.Errorf("String() round trip for %q gave %q", tt.input, got.String())
		}
	}
}

func TestParseResolutionRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "Confirmed", "relocated-to:", "moved", "V"} {
		if _, err := ParseResolution(input); !errors.Is(err, ErrBadResolution) {
			t.Errorf("ParseResolution(%q): expected ErrBadResolution, got %v", input, err)
		}
	}
}
