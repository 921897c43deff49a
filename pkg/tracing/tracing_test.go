package tracing

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "split-escrow", zerolog.New(io.Discard))
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStart_NoopProvider(t *testing.T) {
	ctx, span := Start(context.Background(), "escrow.fund", WalletID("w-1"), Mode("fair"))
	defer span.End()

	assert.NotNil(t, ctx)
	RecordError(span, nil)
}
