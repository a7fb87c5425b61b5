package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleRatio(t *testing.T) {
	assert.Equal(t, 0.1, SampleRatio(0))
	assert.Equal(t, 0.0, SampleRatio(-2))
	assert.Equal(t, 1.0, SampleRatio(3))
	assert.Equal(t, 0.5, SampleRatio(0.5))
}

func TestParseHeaders(t *testing.T) {
	assert.Nil(t, ParseHeaders(""))
	assert.Nil(t, ParseHeaders("broken,=x"))
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, ParseHeaders(" a=1, b = 2 ,c"))
}

func TestInitOTelDisabled(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	assert.NoError(t, shutdown(context.Background()))
}
