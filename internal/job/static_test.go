package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmvolok/sdbench/internal/sdnext"
)

func TestStaticSourceNext(t *testing.T) {
	ctx := context.Background()
	template := sdnext.GenerationRequest{Prompt: "a lighthouse at dusk", Steps: 20, BatchSize: 1}

	t.Run("returns a copy of the template", func(t *testing.T) {
		s := &StaticSource{Template: template}

		j, err := s.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, template, j.Request)
		assert.Empty(t, j.MessageID)
		assert.Empty(t, j.UploadURLs)

		// Mutating the job must not leak back into the template.
		j.Request.Prompt = "something else"
		j2, err := s.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, "a lighthouse at dusk", j2.Request.Prompt)
	})

	t.Run("overrides batch size when configured", func(t *testing.T) {
		s := &StaticSource{Template: template, BatchSize: 4}

		j, err := s.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, j.Request.BatchSize)
	})

	t.Run("defaults batch size to one", func(t *testing.T) {
		s := &StaticSource{Template: sdnext.GenerationRequest{Prompt: "p"}}

		j, err := s.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, j.Request.BatchSize)
	})

	t.Run("mints unique job ids", func(t *testing.T) {
		s := &StaticSource{Template: template}

		j1, err := s.Next(ctx)
		require.NoError(t, err)
		j2, err := s.Next(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, j1.ID, j2.ID)
	})

	t.Run("complete is a no-op", func(t *testing.T) {
		s := &StaticSource{Template: template}

		j, err := s.Next(ctx)
		require.NoError(t, err)
		assert.NoError(t, s.Complete(ctx, j))
	})
}
