package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckID(t *testing.T) {
	id := NewCheckID("nz.ac.wgtn.Acceptance", "testAdd")
	assert.Equal(t, "nz.ac.wgtn.Acceptance::testAdd", id.String())
	assert.Equal(t, "nz.ac.wgtn.Acceptance", id.Class())
	assert.Equal(t, "testAdd", id.Method())
	require.NoError(t, id.Validate())

	tests := []struct {
		name string
		id   CheckID
	}{
		{name: "no separator", id: "nz.ac.wgtn.Acceptance"},
		{name: "empty class", id: "::testAdd"},
		{name: "empty method", id: "nz.ac.wgtn.Acceptance::"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.id.Validate())
		})
	}
}

func TestStatusFromRunner(t *testing.T) {
	tests := map[string]CheckStatus{
		"SUCCESSFUL": CheckStatusSuccess,
		"successful": CheckStatusSuccess,
		"FAILED":     CheckStatusFailure,
		"ABORTED":    CheckStatusAborted,
		"":           CheckStatusAborted,
		"weird":      CheckStatusAborted,
	}
	for in, want := range tests {
		assert.Equal(t, want, StatusFromRunner(in), "input %q", in)
	}
}

func TestParseDialect(t *testing.T) {
	for _, in := range []string{"jupiter", "JUnit5", "5"} {
		d, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, DialectJupiter, d)
		assert.Equal(t, JupiterReportName, d.ReportName())
	}
	for _, in := range []string{"vintage", "junit4", " 4 "} {
		d, err := ParseDialect(in)
		require.NoError(t, err)
		assert.Equal(t, DialectVintage, d)
		assert.Equal(t, VintageReportName, d.ReportName())
	}
	_, err := ParseDialect("testng")
	assert.Error(t, err)
}
