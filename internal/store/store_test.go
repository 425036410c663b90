package store

import "testing"

func TestAccountKey(t *testing.T) {
	tests := []struct {
		source, spender, want string
	}{
		{"checking-a", "", "checking-a"},
		{"credit-b", "jordan", "credit-b_jordan"},
		{"credit-a", "denis", "credit-a_denis"},
	}
	for _, tt := range tests {
		if got := AccountKey(tt.source, tt.spender); got != tt.want {
			t.Errorf("AccountKey(%q, %q) = %q, want %q", tt.source, tt.spender, got, tt.want)
		}
	}
}
