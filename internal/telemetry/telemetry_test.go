package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	assert.Equal(t, map[string]string{"api-key": "abc", "tenant": "sinoman"},
		ParseHeaders(" api-key=abc , tenant=sinoman,broken,=x"))
	assert.Empty(t, ParseHeaders(""))
}

func TestInitRequiresServiceName(t *testing.T) {
	_, err := Init(context.Background(), Config{})
	assert.Error(t, err)
}

func TestInitAndShutdown(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{ServiceName: "cardsvc-test", Endpoint: "127.0.0.1:1", Insecure: true})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// nothing was recorded, so a cancelled context only cuts the flush short
	_ = shutdown(ctx)
}
