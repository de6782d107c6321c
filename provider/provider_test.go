package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/remedy/provider/you"
)

func TestNewReasoner(t *testing.T) {
	_, err := NewReasoner(You, Options{})
	assert.Error(t, err)

	r, err := NewReasoner("", Options{APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &you.Agents{}, r)

	r, err = NewReasoner(OpenAI, Options{APIKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, r)

	_, err = NewReasoner("gemini", Options{APIKey: "k"})
	assert.Error(t, err)
}
