package main

import (
	"testing"
	"time"
)

func TestGetenvDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      string
		envValue string
		want     string
	}{
		{
			name:     "env var set",
			key:      "TEST_VAR_SET",
			def:      "default",
			envValue: "custom",
			want:     "custom",
		},
		{
			name:     "env var empty",
			key:      "TEST_VAR_EMPTY",
			def:      "default",
			envValue: "",
			want:     "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.envValue)

			got := getenvDefault(tt.key, tt.def)
			if got != tt.want {
				t.Errorf("getenvDefault(%q, %q) = %q, want %q", tt.key, tt.def, got, tt.want)
			}
		})
	}
}

func TestGetenvInt(t *testing.T) {
	t.Setenv("TEST_INT_OK", "42")
	if got := getenvInt("TEST_INT_OK", 7); got != 42 {
		t.Errorf("getenvInt = %d, want 42", got)
	}

	t.Setenv("TEST_INT_BAD", "not-a-number")
	if got := getenvInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getenvInt with bad value = %d, want default 7", got)
	}

	if got := getenvInt("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("getenvInt with missing value = %d, want default 7", got)
	}
}

func TestGetenvDuration(t *testing.T) {
	t.Setenv("TEST_DUR_OK", "250ms")
	if got := getenvDuration("TEST_DUR_OK", time.Second); got != 250*time.Millisecond {
		t.Errorf("getenvDuration = %s, want 250ms", got)
	}

	t.Setenv("TEST_DUR_BAD", "soon")
	if got := getenvDuration("TEST_DUR_BAD", time.Second); got != time.Second {
		t.Errorf("getenvDuration with bad value = %s, want default 1s", got)
	}
}
