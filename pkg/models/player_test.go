package models

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestCleanName(t *testing.T) {
	long := strings.Repeat("ж", 45)
	tests := []struct {
		in, want string
	}{
		{"  Alice ", "Alice"},
		{"", AnonymousName},
		{"   ", AnonymousName},
		{long, strings.Repeat("ж", MaxNameLength)},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if n := utf8.RuneCountInString(CleanName(long)); n != MaxNameLength {
		t.Errorf("rune count = %d", n)
	}
}

func TestPlayerStatus(t *testing.T) {
	p := &Player{Activated: -1}
	if !p.IsBanned() || p.IsActive() {
		t.Fatalf("banned player misreported")
	}
	p = &Player{Activated: 1700000000, AuthMethod: "guest"}
	if !p.IsActive() || !p.IsGuest() {
		t.Fatalf("guest player misreported")
	}
}
