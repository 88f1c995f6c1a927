package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGPUName(t *testing.T) {
	t.Run("single gpu", func(t *testing.T) {
		name, err := parseGPUName([]byte("NVIDIA GeForce RTX 4090\n"))
		require.NoError(t, err)
		assert.Equal(t, "NVIDIA GeForce RTX 4090", name)
	})

	t.Run("multiple gpus take the first", func(t *testing.T) {
		name, err := parseGPUName([]byte("NVIDIA A100-SXM4-80GB\nNVIDIA A100-SXM4-80GB\n"))
		require.NoError(t, err)
		assert.Equal(t, "NVIDIA A100-SXM4-80GB", name)
	})

	t.Run("empty output is an error", func(t *testing.T) {
		_, err := parseGPUName([]byte("\n"))
		assert.Error(t, err)
	})
}
