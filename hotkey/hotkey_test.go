package hotkey

import (
	"slices"
	"testing"
)

func TestParseCombo(t *testing.T) {
	tests := []struct {
		combo   string
		want    []string
		wantErr bool
	}{
		{"ctrl+shift+l", []string{"ctrl", "shift", "l"}, false},
		{"Control + Option + Space", []string{"ctrl", "alt", "space"}, false},
		{"cmd+k", []string{"cmd", "k"}, false},
		{"f9", []string{"f9"}, false},
		{"", nil, true},
		{"ctrl+shift", nil, true},
		{"ctrl++l", nil, true},
		{"a+b", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.combo, func(t *testing.T) {
			got, err := ParseCombo(tt.combo)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCombo(%q) error = %v, wantErr %v", tt.combo, err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("ParseCombo(%q) = %v, want %v", tt.combo, got, tt.want)
			}
		})
	}
}
