package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/receipt-service/config"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInit_EnabledWithoutEndpoint(t *testing.T) {
	_, err := Init(context.Background(), config.TelemetryConfig{Enabled: true})
	assert.Error(t, err)
}

func TestEnvOr(t *testing.T) {
	t.Setenv("RECEIPT_TELEMETRY_TEST", "")
	assert.Equal(t, "fallback", envOr("RECEIPT_TELEMETRY_TEST", "fallback"))

	t.Setenv("RECEIPT_TELEMETRY_TEST", "set")
	assert.Equal(t, "set", envOr("RECEIPT_TELEMETRY_TEST", "fallback"))
}
