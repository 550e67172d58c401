package roundutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundToNearestTick(t *testing.T) {
	assert.Equal(t, 10.1, RoundTo(10.12, 0.1))
	assert.Equal(t, 10.2, RoundTo(10.15, 0.1))
	assert.Equal(t, 100.25, RoundTo(100.26, 0.25))
}

func TestRoundToZeroTickIsNoop(t *testing.T) {
	assert.Equal(t, 5.5, RoundTo(5.5, 0))
}

func TestRoundToIsIdempotent(t *testing.T) {
	once := RoundTo(3.14159, 0.01)
	twice := RoundTo(once, 0.01)
	assert.Equal(t, once, twice)
}

func TestExtractVtSymbolSplitsOnLastDot(t *testing.T) {
	symbol, exchange, err := ExtractVtSymbol("rb2105.SHFE")
	require.NoError(t, err)
	assert.Equal(t, "rb2105", symbol)
	assert.Equal(t, "SHFE", string(exchange))
}

func TestExtractVtSymbolRejectsUnknownExchange(t *testing.T) {
	_, _, err := ExtractVtSymbol("rb2105.MARS")
	require.Error(t, err)
}

func TestExtractVtSymbolRejectsMissingDot(t *testing.T) {
	_, _, err := ExtractVtSymbol("rb2105")
	require.Error(t, err)
}
