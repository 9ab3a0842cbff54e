package otel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitOpenTelemetry_Disabled(t *testing.T) {
	shutdown, err := InitOpenTelemetry(context.Background(), OtelConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	fields := otel.GetTextMapPropagator().Fields()
	assert.Contains(t, fields, "traceparent")
}

func TestInitOpenTelemetry_RejectsInvalidConfig(t *testing.T) {
	_, err := InitOpenTelemetry(context.Background(), OtelConfig{
		Enabled:     true,
		ServiceName: "licensectl",
		SampleRate:  1.5,
	})
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestInitOpenTelemetry_Enabled(t *testing.T) {
	shutdown, err := InitOpenTelemetry(context.Background(), OtelConfig{
		Enabled:     true,
		ServiceName: "licensectl",
		Environment: "test",
		Endpoint:    "http://localhost:4318",
		Headers:     map[string]string{"authorization": "test-key"},
		SampleRate:  1.0,
	})
	require.NoError(t, err)

	// nothing listens on the endpoint; shutdown may report the failed flush
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestEndpoint(t *testing.T) {
	host, insecure := endpoint(OtelConfig{Endpoint: "http://collector:4318"})
	assert.Equal(t, "collector:4318", host)
	assert.True(t, insecure)

	host, insecure = endpoint(OtelConfig{Endpoint: "https://collector:4318"})
	assert.Equal(t, "collector:4318", host)
	assert.False(t, insecure)

	host, insecure = endpoint(OtelConfig{Endpoint: "collector:4318", Insecure: true})
	assert.Equal(t, "collector:4318", host)
	assert.True(t, insecure)
}
