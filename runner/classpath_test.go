package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdjustClasspath(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
		marker  string
		sep     string
		compat  bool
		want    string
	}{
		{
			name:    "compat moves marker entry to the end after a doubled separator",
			entries: []string{"a.jar", "mock-lib.jar", "b.jar"},
			marker:  "mock",
			sep:     ":",
			compat:  true,
			want:    "r.jar:a.jar:b.jar::mock-lib.jar",
		},
		{
			name:    "corrected form joins normally",
			entries: []string{"a.jar", "mock-lib.jar", "b.jar"},
			marker:  "mock",
			sep:     ":",
			want:    "r.jar:a.jar:b.jar:mock-lib.jar",
		},
		{
			name:    "compat without marker entry leaves a trailing separator pair",
			entries: []string{"a.jar", "b.jar"},
			marker:  "spring-mock",
			sep:     ";",
			compat:  true,
			want:    "r.jar;a.jar;b.jar;;",
		},
		{
			name:    "corrected form without marker entry",
			entries: []string{"a.jar", "b.jar"},
			marker:  "spring-mock",
			sep:     ";",
			want:    "r.jar;a.jar;b.jar",
		},
		{
			name:    "compat keeps only the last marker entry",
			entries: []string{"spring-mock-1.jar", "a.jar", "spring-mock-2.jar"},
			marker:  "spring-mock",
			sep:     ";",
			compat:  true,
			want:    "r.jar;a.jar;;spring-mock-2.jar",
		},
		{
			name:    "corrected form keeps every marker entry in order",
			entries: []string{"spring-mock-1.jar", "a.jar", "spring-mock-2.jar"},
			marker:  "spring-mock",
			sep:     ";",
			want:    "r.jar;a.jar;spring-mock-1.jar;spring-mock-2.jar",
		},
		{
			name:    "empty marker isolates nothing",
			entries: []string{"a.jar"},
			marker:  "",
			sep:     ":",
			want:    "r.jar:a.jar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustClasspath("r.jar", tt.entries, tt.marker, tt.sep, tt.compat)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlatformFromGOOS(t *testing.T) {
	assert.Equal(t, PlatformWindows, platformFromGOOS("windows"))
	assert.Equal(t, PlatformOther, platformFromGOOS("darwin"))
	assert.Equal(t, PlatformOther, platformFromGOOS("linux"))
	assert.Equal(t, HostPlatform(), HostPlatform())
}
