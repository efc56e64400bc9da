package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCorrelationIDIsUnique(t *testing.T) {
	a := GenerateCorrelationID()
	b := GenerateCorrelationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "cid-1")
	assert.Equal(t, "cid-1", ExtractCorrelationID(ctx))
}

func TestExtractCorrelationIDMissing(t *testing.T) {
	assert.Empty(t, ExtractCorrelationID(context.Background()))
}
