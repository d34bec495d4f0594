package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/framecast/framecast/codec"
	_ "github.com/framecast/framecast/codec/rawz"
	"github.com/framecast/framecast/pixbuf"
)

func greyFrame(width, height int) *pixbuf.Buffer {
	buf := pixbuf.Alloc(pixbuf.FormatBGRA32, width, height)
	for i := range buf.Planes[0] {
		buf.Planes[0][i] = 128
	}
	return buf
}

func TestWindowPush(t *testing.T) {
	w, err := NewWindow(codec.CodecRawZ, 64, 48, 77, 50, nil)
	require.NoError(t, err)
	defer w.Close()
	require.Equal(t, pixbuf.Sampling420, w.Encoder().ColourSampling())

	frame, err := w.Push(greyFrame(64, 48), 77, 50)
	require.NoError(t, err)
	assert.Equal(t, codec.CodecRawZ, frame.Kind)
	assert.Equal(t, pixbuf.Sampling420, frame.Sampling)
	assert.NotEmpty(t, frame.Data)

	// The push target steers the adaptation state machine.
	_, err = w.Push(greyFrame(64, 48), 95, 50)
	require.NoError(t, err)
	assert.Equal(t, pixbuf.Sampling444, w.Encoder().ColourSampling())
	assert.Equal(t, 1, w.Encoder().Generation())
}

func TestViewerRequiresPackedDisplay(t *testing.T) {
	_, err := NewViewer(codec.CodecRawZ, 64, 48, pixbuf.Sampling420, pixbuf.FormatYUV420P)
	assert.ErrorIs(t, err, codec.ErrUnsupportedFormat)
}

func TestWindowToViewerDelivery(t *testing.T) {
	w, err := NewWindow(codec.CodecRawZ, 64, 48, 77, 50, nil)
	require.NoError(t, err)
	defer w.Close()

	v, err := NewViewer(codec.CodecRawZ, 64, 48, pixbuf.Sampling420, pixbuf.FormatBGRA32)
	require.NoError(t, err)
	defer v.Close()

	frame, err := w.Push(greyFrame(64, 48), 77, 50)
	require.NoError(t, err)

	out, err := v.Deliver(frame.Data, nil)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.Owned)
	assert.Equal(t, pixbuf.FormatBGRA32, out.Format)
	assert.Equal(t, 64, out.Width)
	assert.Equal(t, 48, out.Height)

	// Mid grey survives the whole encode/decode/convert path exactly.
	assert.Equal(t, byte(128), out.Planes[0][0])
	assert.Equal(t, byte(128), out.Planes[0][1])
	assert.Equal(t, byte(128), out.Planes[0][2])
	assert.Equal(t, byte(0xff), out.Planes[0][3])

	// Nothing borrowed is left behind.
	assert.Equal(t, 0, v.Decoder().Outstanding())
}

func TestViewerDeliverWait(t *testing.T) {
	v, err := NewViewer(codec.CodecRawZ, 64, 48, pixbuf.Sampling420, pixbuf.FormatBGRA32)
	require.NoError(t, err)
	defer v.Close()

	opts := &codec.DecodeOptions{}
	out, err := v.Deliver([]byte("RFZC more to come"), opts)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 1, opts.DelayedFrames)
}

func TestHubMembership(t *testing.T) {
	h := NewHub()
	defer h.Close()

	w, err := NewWindow(codec.CodecRawZ, 32, 32, 50, 50, nil)
	require.NoError(t, err)
	h.Add(w)
	assert.Equal(t, 1, h.Len())

	got, ok := h.Window(w.ID())
	assert.True(t, ok)
	assert.Same(t, w, got)

	require.NoError(t, h.Remove(w.ID()))
	assert.Equal(t, 0, h.Len())
	assert.Error(t, h.Remove(w.ID()))
}

func TestHubPushAll(t *testing.T) {
	h := NewHub()
	defer h.Close()

	first, err := NewWindow(codec.CodecRawZ, 32, 32, 50, 50, nil)
	require.NoError(t, err)
	second, err := NewWindow(codec.CodecRawZ, 64, 48, 50, 50, nil)
	require.NoError(t, err)
	h.Add(first)
	h.Add(second)

	frames := map[string]*pixbuf.Buffer{
		first.ID():  greyFrame(32, 32),
		second.ID(): greyFrame(64, 48),
	}
	results, err := h.PushAll(context.Background(), frames, 50, 50)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 32, results[first.ID()].Width)
	assert.Equal(t, 64, results[second.ID()].Width)
}

func TestHubPushAllSkipsWindowsWithoutFrames(t *testing.T) {
	h := NewHub()
	defer h.Close()

	withFrame, err := NewWindow(codec.CodecRawZ, 32, 32, 50, 50, nil)
	require.NoError(t, err)
	idle, err := NewWindow(codec.CodecRawZ, 32, 32, 50, 50, nil)
	require.NoError(t, err)
	h.Add(withFrame)
	h.Add(idle)

	results, err := h.PushAll(context.Background(),
		map[string]*pixbuf.Buffer{withFrame.ID(): greyFrame(32, 32)}, 50, 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
	_, ok := results[idle.ID()]
	assert.False(t, ok)
}

func TestHubPushAllPropagatesErrors(t *testing.T) {
	h := NewHub()
	defer h.Close()

	w, err := NewWindow(codec.CodecRawZ, 32, 32, 50, 50, nil)
	require.NoError(t, err)
	h.Add(w)

	// A frame with the wrong dimensions is a fatal encode error.
	_, err = h.PushAll(context.Background(),
		map[string]*pixbuf.Buffer{w.ID(): greyFrame(64, 64)}, 50, 50)
	assert.ErrorIs(t, err, codec.ErrCodecFatal)
}
