package cache

import (
	"testing"
	"time"
)

func TestEntry_IsExpired(t *testing.T) {
	tests := []struct {
		name    string
		expires time.Time
		want    bool
	}{
		{"expired entry", time.Now().Add(-time.Hour), true},
		{"valid entry", time.Now().Add(time.Hour), false},
		{"just expired", time.Now().Add(-time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Expires: tt.expires}
			if got := e.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEntry_TTL(t *testing.T) {
	if ttl := (&Entry{Expires: time.Now().Add(-time.Minute)}).TTL(); ttl != 0 {
		t.Errorf("TTL() of expired entry = %v, want 0", ttl)
	}

	ttl := (&Entry{Expires: time.Now().Add(time.Hour)}).TTL()
	if ttl < 59*time.Minute || ttl > time.Hour {
		t.Errorf("TTL() = %v, want ~1h", ttl)
	}
}
