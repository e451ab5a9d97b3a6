package generator

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMockLLMGalleryRoundTrip(t *testing.T) {
	m := NewMockLLM(42)
	m.ChunkSize = 16
	a := newTestAgent(t, m)

	var chunks int
	g, err := a.CreateGallery(context.Background(), Settings{Topic: "고양이", Search: true}, func(s string) {
		chunks++
		assert.True(t, utf8.ValidString(s), "chunk split a rune: %q", s)
	})
	require.NoError(t, err)
	assert.Greater(t, chunks, 1)
	assertGalleryInvariants(t, g, a.PostProcessor().Limits())
	assert.Len(t, g.Sources, 1)
}

func TestMockLLMComments(t *testing.T) {
	m := NewMockLLM(1)
	a := newTestAgent(t, m)
	out, err := a.GenerateComments(context.Background(), Settings{Topic: "t"}, PostDraft{Title: "t", Author: "a", Content: "c"}, 6, 6)
	require.NoError(t, err)
	assert.Len(t, out, 6)

	ev, err := a.EvaluatePost(context.Background(), Settings{Topic: "t"}, PostDraft{Title: "t", Author: "a", Content: "c"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ev.Views, 50)

	text, err := a.WorldviewFeedback(context.Background(), Settings{Topic: "t", Worldview: WorldviewCustom, CustomWorldview: "w"}, Gallery{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "## 장점"))
}

func TestMockLLMStreamCancel(t *testing.T) {
	m := NewMockLLM(7)
	m.ChunkSize = 1
	ctx, cancel := context.WithCancel(context.Background())

	chunks, errc := m.Stream(ctx, Prompt{Kind: OpGallery})
	<-chunks
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	for range chunks {
	}
}
