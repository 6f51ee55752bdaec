package tessera

import (
	"bytes"
	"io"
	"strings"
	"sync"
)

// Writer is an output sink of the writer chain.
// Clear discards output that has not reached its final destination yet;
// Close releases the writer and flushes anything pending.
type Writer interface {
	io.Writer
	io.StringWriter
	Clear() error
	Close() error
}

// DecorativeWriter is implemented by writers that forward to an inner
// writer without owning its lifecycle. Decorative writers are never closed
// by writer substitution.
type DecorativeWriter interface {
	Writer
	Decorative() bool
}

// IsDecorative reports whether w is a decorative writer.
func IsDecorative(w Writer) bool {
	d, ok := w.(DecorativeWriter)
	return ok && d.Decorative()
}

// Writer error message constants
const (
	ErrMsgWriterClosed = "write to closed writer"
)

// newWriterClosedError reports a write after Close.
func newWriterClosedError() error {
	return NewExecutionError(ErrMsgWriterClosed, "", nil)
}

// BufferWriter collects output in memory.
type BufferWriter struct {
	buf    bytes.Buffer
	closed bool
}

// NewBufferWriter creates an empty BufferWriter.
func NewBufferWriter() *BufferWriter {
	return &BufferWriter{}
}

// Write implements io.Writer.
func (w *BufferWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, newWriterClosedError()
	}
	return w.buf.Write(p)
}

// WriteString implements io.StringWriter.
func (w *BufferWriter) WriteString(s string) (int, error) {
	if w.closed {
		return 0, newWriterClosedError()
	}
	return w.buf.WriteString(s)
}

// Clear discards the collected output.
func (w *BufferWriter) Clear() error {
	w.buf.Reset()
	return nil
}

// Close marks the writer closed. The collected output stays readable.
func (w *BufferWriter) Close() error {
	w.closed = true
	return nil
}

// String returns the collected output.
func (w *BufferWriter) String() string {
	return w.buf.String()
}

// Closed reports whether Close has been called.
func (w *BufferWriter) Closed() bool {
	return w.closed
}

// StreamWriter buffers output for an io.Writer and forwards it on Flush or
// Close, so a failed render can discard partial output with Clear.
// The target itself is never closed.
type StreamWriter struct {
	out    io.Writer
	buf    bytes.Buffer
	closed bool
}

// NewStreamWriter creates a StreamWriter forwarding to out.
func NewStreamWriter(out io.Writer) *StreamWriter {
	return &StreamWriter{out: out}
}

// Write implements io.Writer.
func (w *StreamWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, newWriterClosedError()
	}
	return w.buf.Write(p)
}

// WriteString implements io.StringWriter.
func (w *StreamWriter) WriteString(s string) (int, error) {
	if w.closed {
		return 0, newWriterClosedError()
	}
	return w.buf.WriteString(s)
}

// Flush forwards buffered output to the target.
func (w *StreamWriter) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := w.buf.WriteTo(w.out)
	return err
}

// Clear discards buffered output that has not been flushed.
func (w *StreamWriter) Clear() error {
	w.buf.Reset()
	return nil
}

// Close flushes and closes the writer. Subsequent calls are no-ops.
func (w *StreamWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.Flush()
}

// IndentWriter prefixes every output line with a fixed string and forwards
// to an inner writer. It is decorative: closing it leaves the inner writer
// open.
type IndentWriter struct {
	inner       Writer
	prefix      string
	atLineStart bool
}

// NewIndentWriter creates an IndentWriter in front of inner.
func NewIndentWriter(inner Writer, prefix string) *IndentWriter {
	return &IndentWriter{inner: inner, prefix: prefix, atLineStart: true}
}

// Write implements io.Writer.
func (w *IndentWriter) Write(p []byte) (int, error) {
	if _, err := w.WriteString(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString implements io.StringWriter.
func (w *IndentWriter) WriteString(s string) (int, error) {
	var sb strings.Builder
	for _, r := range s {
		if w.atLineStart && r != '\n' {
			sb.WriteString(w.prefix)
		}
		sb.WriteRune(r)
		w.atLineStart = r == '\n'
	}
	if _, err := w.inner.WriteString(sb.String()); err != nil {
		return 0, err
	}
	return len(s), nil
}

// Clear resets the line state; the inner writer is not touched.
func (w *IndentWriter) Clear() error {
	w.atLineStart = true
	return nil
}

// Close is a no-op; the inner writer belongs to someone else.
func (w *IndentWriter) Close() error {
	return nil
}

// Decorative implements DecorativeWriter.
func (w *IndentWriter) Decorative() bool {
	return true
}

// CaptureWriter collects output and, when closed, passes it through a
// transform before writing the result to an inner writer. It owns its
// buffer; Close runs exactly once.
type CaptureWriter struct {
	inner     Writer
	transform func(string) (string, error)
	buf       strings.Builder
	once      sync.Once
	closeErr  error
	closed    bool
}

// NewCaptureWriter creates a CaptureWriter. A nil transform forwards the
// captured output unchanged.
func NewCaptureWriter(inner Writer, transform func(string) (string, error)) *CaptureWriter {
	return &CaptureWriter{inner: inner, transform: transform}
}

// Write implements io.Writer.
func (w *CaptureWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, newWriterClosedError()
	}
	return w.buf.Write(p)
}

// WriteString implements io.StringWriter.
func (w *CaptureWriter) WriteString(s string) (int, error) {
	if w.closed {
		return 0, newWriterClosedError()
	}
	return w.buf.WriteString(s)
}

// Clear discards captured output.
func (w *CaptureWriter) Clear() error {
	w.buf.Reset()
	return nil
}

// Captured returns the output captured so far.
func (w *CaptureWriter) Captured() string {
	return w.buf.String()
}

// Close transforms the captured output and writes it to the inner writer.
func (w *CaptureWriter) Close() error {
	w.once.Do(func() {
		w.closed = true
		out := w.buf.String()
		if w.transform != nil {
			var err error
			if out, err = w.transform(out); err != nil {
				w.closeErr = err
				return
			}
		}
		if out != "" && w.inner != nil {
			_, w.closeErr = w.inner.WriteString(out)
		}
	})
	return w.closeErr
}

// WriterChain is the stack of active writers of one render. The root
// writer sits at the bottom and cannot be popped.
type WriterChain struct {
	stack []Writer
}

// NewWriterChain creates a chain with root as the bottom writer.
func NewWriterChain(root Writer) *WriterChain {
	return &WriterChain{stack: []Writer{root}}
}

// Current returns the innermost writer.
func (c *WriterChain) Current() Writer {
	return c.stack[len(c.stack)-1]
}

// Root returns the bottom writer.
func (c *WriterChain) Root() Writer {
	return c.stack[0]
}

// Push makes w the current writer.
func (c *WriterChain) Push(w Writer) {
	c.stack = append(c.stack, w)
}

// Pop removes and returns the current writer.
func (c *WriterChain) Pop() (Writer, error) {
	if len(c.stack) == 1 {
		return nil, NewContextError(ErrMsgPopRootWriter, "")
	}
	w := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return w, nil
}

// Depth returns the number of writers on the chain.
func (c *WriterChain) Depth() int {
	return len(c.stack)
}
