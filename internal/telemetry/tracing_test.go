package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "  ", "commit-karma")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	tests := []struct {
		endpoint string
		want     int
	}{
		{"collector:4318", 1},
		{"https://collector.example.com", 1},
		{"http://localhost:4318", 2},
		{"http://localhost:4318/custom/v1/traces", 3},
	}
	for _, tt := range tests {
		assert.Len(t, exporterOptions(tt.endpoint), tt.want, tt.endpoint)
	}
}
