package tessera

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWriter(t *testing.T) {
	w := NewBufferWriter()
	_, err := w.WriteString("hello ")
	require.NoError(t, err)
	_, err = w.Write([]byte("world"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", w.String())

	require.NoError(t, w.Clear())
	assert.Equal(t, "", w.String())

	require.NoError(t, w.Close())
	assert.True(t, w.Closed())
	_, err = w.WriteString("late")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgWriterClosed)
}

func TestStreamWriter(t *testing.T) {
	t.Run("flushes on close", func(t *testing.T) {
		var out bytes.Buffer
		w := NewStreamWriter(&out)
		_, err := w.WriteString("abc")
		require.NoError(t, err)
		assert.Equal(t, "", out.String())
		require.NoError(t, w.Close())
		assert.Equal(t, "abc", out.String())
	})

	t.Run("clear discards pending output", func(t *testing.T) {
		var out bytes.Buffer
		w := NewStreamWriter(&out)
		_, _ = w.WriteString("abc")
		require.NoError(t, w.Clear())
		require.NoError(t, w.Close())
		assert.Equal(t, "", out.String())
	})

	t.Run("close is idempotent", func(t *testing.T) {
		var out bytes.Buffer
		w := NewStreamWriter(&out)
		_, _ = w.WriteString("x")
		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
		assert.Equal(t, "x", out.String())
	})
}

func TestIndentWriter(t *testing.T) {
	inner := NewBufferWriter()
	w := NewIndentWriter(inner, "> ")
	_, err := w.WriteString("a\nb")
	require.NoError(t, err)
	_, err = w.WriteString("c\n\nd\n")
	require.NoError(t, err)
	assert.Equal(t, "> a\n> bc\n\n> d\n", inner.String())

	assert.True(t, IsDecorative(w))
	require.NoError(t, w.Close())
	assert.False(t, inner.Closed())
}

func TestCaptureWriter(t *testing.T) {
	t.Run("transforms on close", func(t *testing.T) {
		inner := NewBufferWriter()
		w := NewCaptureWriter(inner, func(s string) (string, error) {
			return strings.ToUpper(s), nil
		})
		_, _ = w.WriteString("abc")
		assert.Equal(t, "abc", w.Captured())
		assert.Equal(t, "", inner.String())

		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
		assert.Equal(t, "ABC", inner.String())
		assert.False(t, IsDecorative(w))
	})

	t.Run("transform error is kept", func(t *testing.T) {
		w := NewCaptureWriter(NewBufferWriter(), func(string) (string, error) {
			return "", errBoom
		})
		assert.True(t, errors.Is(w.Close(), errBoom))
		assert.True(t, errors.Is(w.Close(), errBoom))
	})

	t.Run("nil transform forwards", func(t *testing.T) {
		inner := NewBufferWriter()
		w := NewCaptureWriter(inner, nil)
		_, _ = w.WriteString("x")
		require.NoError(t, w.Clear())
		_, _ = w.WriteString("y")
		require.NoError(t, w.Close())
		assert.Equal(t, "y", inner.String())
	})
}

func TestWriterChain(t *testing.T) {
	root := NewBufferWriter()
	chain := NewWriterChain(root)
	assert.Same(t, root, chain.Current())
	assert.Equal(t, 1, chain.Depth())

	top := NewBufferWriter()
	chain.Push(top)
	assert.Same(t, top, chain.Current())
	assert.Same(t, root, chain.Root())

	popped, err := chain.Pop()
	require.NoError(t, err)
	assert.Same(t, top, popped)

	_, err = chain.Pop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrMsgPopRootWriter)
	assert.Same(t, root, chain.Current())
}
