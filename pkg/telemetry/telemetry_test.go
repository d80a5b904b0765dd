package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "bookstore", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestTrimScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", trimScheme("http://collector:4318/"))
	assert.Equal(t, "otel.example.com", trimScheme("https://otel.example.com"))
	assert.Equal(t, "localhost:4318", trimScheme("localhost:4318"))
}
