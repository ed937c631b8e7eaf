package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequestValidate(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "junit-platform-console-standalone-1.6.2.jar")
	require.NoError(t, os.WriteFile(jar, []byte("PK"), 0644))

	valid := RunRequest{Runner: jar, CheckClass: "nz.ac.wgtn.Acceptance", Dialect: DialectJupiter}

	tests := []struct {
		name    string
		mutate  func(r *RunRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(r *RunRequest) {}},
		{name: "valid with classpath", mutate: func(r *RunRequest) { r.Classpath = []string{"a.jar", "b.jar"} }},
		{name: "missing runner", mutate: func(r *RunRequest) { r.Runner = "" }, wantErr: "runner must be provided"},
		{name: "nonexistent runner", mutate: func(r *RunRequest) { r.Runner = filepath.Join(dir, "nope.jar") }, wantErr: "runner not found"},
		{name: "runner is a directory", mutate: func(r *RunRequest) { r.Runner = dir }, wantErr: "not a regular file"},
		{name: "empty class", mutate: func(r *RunRequest) { r.CheckClass = "" }, wantErr: "check class cannot be empty"},
		{name: "bad dialect", mutate: func(r *RunRequest) { r.Dialect = "testng" }, wantErr: "invalid check dialect"},
		{name: "empty classpath entry", mutate: func(r *RunRequest) { r.Classpath = []string{"a.jar", ""} }, wantErr: "index 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunResultAdd(t *testing.T) {
	var r RunResult
	r.Add(Counts{Tests: 10, Failed: 2, Skipped: 1})
	r.Add(Counts{Tests: 3, Errored: 1})
	assert.Equal(t, Counts{Tests: 13, Failed: 2, Skipped: 1, Errored: 1}, r.Counts)
}
