package preset

import "testing"

func TestNormalizeExportName(t *testing.T) {
	prefixes := []string{"HIGH", "MID", "SK", "SM"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already clean", "Crate", "Crate"},
		{"lowercase", "crate", "Crate"},
		{"spaces", "wooden crate", "Wooden_Crate"},
		{"mixed separators", "wooden.crate;large", "Wooden_Crate_Large"},
		{"pipe and comma", "a|b,c", "A_B_C"},
		{"collapses repeats", "wooden___crate", "Wooden_Crate"},
		{"strips typed prefix", "SM_Crate", "Crate"},
		{"strips prefix case-insensitively", "sm_crate", "Crate"},
		{"keeps prefix mid-name", "Crate_SM", "Crate_SM"},
		{"strips only first prefix", "SM_SK_Crate", "SK_Crate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeExportName(tt.in, "Fallback", prefixes)
			if got != tt.want {
				t.Errorf("NormalizeExportName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeExportName_Fallback(t *testing.T) {
	prefixes := []string{"SM"}

	for _, in := range []string{"", "   ", "___", "SM", "sm_"} {
		got := NormalizeExportName(in, "MainScene", prefixes)
		if got != "MainScene" {
			t.Errorf("NormalizeExportName(%q) = %q, want fallback MainScene", in, got)
		}
	}
}
