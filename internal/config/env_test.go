package config

import (
	"testing"
	"time"
)

func TestGetEnvDuration(t *testing.T) {
	cases := []struct {
		val  string
		want time.Duration
	}{
		{"", 5 * time.Second},
		{"2m", 2 * time.Minute},
		{"300", 300 * time.Second},
		{"soon", 5 * time.Second},
	}
	for _, tc := range cases {
		t.Setenv("EXAMCRAFT_TEST_DURATION", tc.val)
		if got := getEnvDuration("EXAMCRAFT_TEST_DURATION", 5*time.Second); got != tc.want {
			t.Errorf("getEnvDuration(%q) = %s, want %s", tc.val, got, tc.want)
		}
	}
}

func TestGetEnvIntFallsBack(t *testing.T) {
	t.Setenv("EXAMCRAFT_TEST_INT", "many")
	if got := getEnvInt("EXAMCRAFT_TEST_INT", 7); got != 7 {
		t.Fatalf("expected default 7, got %d", got)
	}
	t.Setenv("EXAMCRAFT_TEST_INT", "12")
	if got := getEnvInt("EXAMCRAFT_TEST_INT", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("EXAMCRAFT_TEST_LIST", " a, ,b ,c")
	got := getEnvList("EXAMCRAFT_TEST_LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected list %v", got)
	}
}
