package serial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/lacylights-strip/pkg/ledserial"
	"github.com/bbernstein/lacylights-strip/pkg/rgb"
)

// fakePort records writes and serves reads from a pipe.
type fakePort struct {
	mu       sync.Mutex
	written  bytes.Buffer
	writeErr error
	closed   bool

	r *io.PipeReader
	w *io.PipeWriter
}

func newFakePort() *fakePort {
	r, w := io.Pipe()
	return &fakePort{r: r, w: w}
}

func (p *fakePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.r.Close()
}

func (p *fakePort) commands(t *testing.T, pixels uint16) []ledserial.Command {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []ledserial.Command
	r := bytes.NewReader(p.written.Bytes())
	for r.Len() > 0 {
		c, err := ledserial.ReadCommand(r, pixels)
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func TestSink_InitializesThenSets(t *testing.T) {
	port := newFakePort()
	sink := New(port, 3)

	frame := rgb.Frame{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}, {R: 7, G: 8, B: 9}}
	require.NoError(t, sink.Show(frame))
	require.NoError(t, sink.Show(frame))

	cmds := port.commands(t, 3)
	require.Len(t, cmds, 3)
	assert.Equal(t, ledserial.Initialize{Pixels: 3}, cmds[0])
	assert.Equal(t, ledserial.Set{Pix: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}}, cmds[1])
	assert.Equal(t, cmds[1], cmds[2])
}

func TestSink_PadsAndCuts(t *testing.T) {
	port := newFakePort()
	sink := New(port, 2)

	require.NoError(t, sink.Show(rgb.Frame{rgb.White}))
	require.NoError(t, sink.Show(rgb.Frame{rgb.White, rgb.White, rgb.White}))

	cmds := port.commands(t, 2)
	require.Len(t, cmds, 3)
	assert.Equal(t, ledserial.Set{Pix: []byte{255, 255, 255, 0, 0, 0}}, cmds[1])
	assert.Equal(t, ledserial.Set{Pix: []byte{255, 255, 255, 255, 255, 255}}, cmds[2])
}

func TestSink_ReinitializesAfterWriteError(t *testing.T) {
	port := newFakePort()
	sink := New(port, 1)
	require.NoError(t, sink.Show(rgb.Frame{rgb.White}))

	port.mu.Lock()
	port.writeErr = errors.New("unplugged")
	port.mu.Unlock()
	assert.Error(t, sink.Show(rgb.Frame{rgb.White}))

	port.mu.Lock()
	port.writeErr = nil
	port.mu.Unlock()
	require.NoError(t, sink.Show(rgb.Frame{rgb.White}))

	cmds := port.commands(t, 1)
	require.Len(t, cmds, 4)
	assert.Equal(t, ledserial.Initialize{Pixels: 1}, cmds[2])
}

func TestSink_Close(t *testing.T) {
	port := newFakePort()
	sink := New(port, 1)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())
	assert.True(t, port.closed)
	assert.Error(t, sink.Show(rgb.Frame{rgb.White}))

	cmds := port.commands(t, 1)
	require.Len(t, cmds, 1)
	assert.Equal(t, ledserial.Clear{}, cmds[0])
}

func TestSink_RunReadsReports(t *testing.T) {
	port := newFakePort()
	sink := New(port, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Run(ctx) }()

	require.NoError(t, ledserial.WriteReport(port.w, ledserial.Log{Message: "hello"}))
	require.NoError(t, ledserial.WriteReport(port.w, ledserial.Ack{For: ledserial.TypeSet}))

	cancel()
	// unblock the pending read
	_ = port.w.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestSink_RunFailsOnGarbage(t *testing.T) {
	port := newFakePort()
	sink := New(port, 1)

	done := make(chan error, 1)
	go func() { done <- sink.Run(context.Background()) }()

	go func() { _, _ = port.w.Write([]byte{0x7f}) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "failed to read controller packet")
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not fail on an unknown packet")
	}
}
