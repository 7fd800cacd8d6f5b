package verification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowlist_HasOneHundredSixDigitCodes(t *testing.T) {
	g := NewAllowlistGate()
	require.Equal(t, 100, g.Size())
	for _, c := range staticCodes {
		assert.Len(t, c, 6)
		assert.True(t, g.SubmitCode(c), c)
	}
}

func TestAllowlist_SubmitCode(t *testing.T) {
	g := NewAllowlistGate()

	tests := []struct {
		candidate string
		want      bool
	}{
		{"123456", true},
		{"424242", false},
		{"", false},
		{"12345", false},
		{"1234567", false},
		{" 123456", false},
		{"123456 ", false},
		{"１２３４５６", false},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			assert.Equal(t, tt.want, g.SubmitCode(tt.candidate))
		})
	}
}

func TestAllowlist_NoLockout(t *testing.T) {
	g := NewAllowlistGate()
	for i := 0; i < 1000; i++ {
		assert.False(t, g.SubmitCode("424242"))
	}
	assert.True(t, g.SubmitCode("123456"))
	assert.True(t, g.SubmitCode("123456"))
}

func TestAllowlist_VerifyIgnoresReceipt(t *testing.T) {
	g := NewAllowlistGate()
	ok, err := g.Verify(context.Background(), "GFN-1", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.Verify(context.Background(), "GFN-2", "123456")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAllowlist_CustomCodes(t *testing.T) {
	g := NewAllowlistGateWithCodes([]string{"abcDEF"})
	assert.True(t, g.SubmitCode("abcDEF"))
	assert.False(t, g.SubmitCode("ABCDEF"))
}
