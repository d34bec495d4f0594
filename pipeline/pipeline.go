// Package pipeline glues the framecast codec contexts to their
// collaborators: one Window per forwarded surface on the capture side,
// one Viewer per stream on the display side, and a Hub fanning encode
// work out over many independent windows.
//
// A Window or Viewer serializes all access to its underlying context, so
// each must be driven by a single worker; separate windows and viewers
// are fully independent and run in parallel.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/framecast/framecast/codec"
	"github.com/framecast/framecast/csc"
	"github.com/framecast/framecast/pixbuf"
)

// Window owns the encode side of one forwarded surface: an encoder
// context plus the quality and speed targets most recently applied to
// it.
type Window struct {
	id  string
	enc *codec.Encoder
}

// NewWindow opens the encode pipeline for one surface.
func NewWindow(kind codec.CodecKind, width, height, quality, speed int, opts *codec.EncoderOptions) (*Window, error) {
	enc, err := codec.NewEncoder(kind, width, height, quality, speed, opts)
	if err != nil {
		return nil, err
	}
	w := &Window{id: uuid.NewString(), enc: enc}

	logrus.WithFields(logrus.Fields{
		"function":   "NewWindow",
		"window_id":  w.id,
		"context_id": enc.ID(),
		"codec":      kind.String(),
		"width":      width,
		"height":     height,
	}).Info("Window forwarding pipeline opened")

	return w, nil
}

// Push applies the scheduler's current (quality, speed) target and
// encodes one captured frame.
func (w *Window) Push(buf *pixbuf.Buffer, quality, speed int) (*codec.CompressedFrame, error) {
	if err := w.enc.SetQuality(quality); err != nil {
		return nil, fmt.Errorf("window %s: %w", w.id, err)
	}
	if err := w.enc.SetSpeed(speed); err != nil {
		return nil, fmt.Errorf("window %s: %w", w.id, err)
	}
	frame, err := w.enc.Encode(buf)
	if err != nil {
		return nil, fmt.Errorf("window %s: %w", w.id, err)
	}
	return frame, nil
}

// ID returns the window identifier.
func (w *Window) ID() string { return w.id }

// Encoder exposes the underlying encoder context for inspection.
func (w *Window) Encoder() *codec.Encoder { return w.enc }

// Close releases the window's encoder context.
func (w *Window) Close() error { return w.enc.Close() }

// Viewer owns the decode side of one stream: a decoder context plus the
// conversion to the display's packed format.
type Viewer struct {
	id      string
	dec     *codec.Decoder
	display pixbuf.Format

	// conv is rebuilt when the stream sampling or range hint changes.
	conv     *csc.Converter
	convSrc  pixbuf.Format
	convFull bool
}

// NewViewer opens the decode pipeline for one stream. The display
// format must be packed RGB.
func NewViewer(kind codec.CodecKind, width, height int, sampling pixbuf.ColourSampling, display pixbuf.Format) (*Viewer, error) {
	if !display.IsPacked() {
		return nil, fmt.Errorf("%w: display format %s is not packed", codec.ErrUnsupportedFormat, display)
	}
	dec, err := codec.NewDecoder(kind, width, height, sampling)
	if err != nil {
		return nil, err
	}
	v := &Viewer{id: uuid.NewString(), dec: dec, display: display}

	logrus.WithFields(logrus.Fields{
		"function":   "NewViewer",
		"viewer_id":  v.id,
		"context_id": dec.ID(),
		"codec":      kind.String(),
		"display":    display.String(),
	}).Info("Viewer pipeline opened")

	return v, nil
}

// Deliver decodes one compressed payload and converts it for display.
//
// A nil buffer with a nil error means the decoder is still buffering
// (the delayed counter in opts is updated). The returned buffer is
// always owned: conversion to the display format produces a fresh copy,
// so the zero-copy view never escapes the call.
func (v *Viewer) Deliver(data []byte, opts *codec.DecodeOptions) (*pixbuf.Buffer, error) {
	res, err := v.dec.Decode(data, opts)
	if err != nil {
		return nil, fmt.Errorf("viewer %s: %w", v.id, err)
	}
	if res.Status == codec.DecodeWait {
		return nil, nil
	}

	raw, err := res.Frame.Buffer()
	if err != nil {
		return nil, fmt.Errorf("viewer %s: %w", v.id, err)
	}
	fullRange := opts != nil && opts.FullRange
	conv, err := v.converter(raw.Format, fullRange)
	if err != nil {
		return nil, fmt.Errorf("viewer %s: %w", v.id, err)
	}
	out, err := conv.Convert(raw)
	if err != nil {
		return nil, fmt.Errorf("viewer %s: %w", v.id, err)
	}
	// The zero-copy view was consumed by the conversion; hand the frame
	// memory back to the decoder immediately.
	if err := res.Frame.Release(); err != nil {
		return nil, fmt.Errorf("viewer %s: %w", v.id, err)
	}
	return out, nil
}

func (v *Viewer) converter(src pixbuf.Format, fullRange bool) (*csc.Converter, error) {
	if v.conv == nil || v.convSrc != src || v.convFull != fullRange {
		conv, err := csc.NewConverter(src, v.display, csc.AlgorithmFiltered)
		if err != nil {
			return nil, err
		}
		conv.SetFullRange(fullRange)
		v.conv = conv
		v.convSrc = src
		v.convFull = fullRange
	}
	return v.conv, nil
}

// ID returns the viewer identifier.
func (v *Viewer) ID() string { return v.id }

// Decoder exposes the underlying decoder context for inspection.
func (v *Viewer) Decoder() *codec.Decoder { return v.dec }

// Close releases the viewer's decoder context.
func (v *Viewer) Close() error { return v.dec.Close() }

// Hub owns the windows of one forwarding session and encodes batches of
// captured frames in parallel, one goroutine per window. Contexts are
// independent, so the only shared state is the result map.
type Hub struct {
	mu      sync.Mutex
	windows map[string]*Window
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{windows: make(map[string]*Window)}
}

// Add registers a window with the hub.
func (h *Hub) Add(w *Window) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.windows[w.ID()] = w
}

// Remove detaches a window from the hub and closes it.
func (h *Hub) Remove(id string) error {
	h.mu.Lock()
	w, ok := h.windows[id]
	delete(h.windows, id)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown window %s", id)
	}
	return w.Close()
}

// Window returns a registered window by id.
func (h *Hub) Window(id string) (*Window, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	return w, ok
}

// Len returns the number of registered windows.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.windows)
}

// PushAll encodes one captured frame per window in parallel and returns
// the compressed frames keyed by window id. Each window still sees
// strictly serialized access; parallelism is across windows only. The
// first failing window aborts the batch.
func (h *Hub) PushAll(ctx context.Context, frames map[string]*pixbuf.Buffer, quality, speed int) (map[string]*codec.CompressedFrame, error) {
	h.mu.Lock()
	targets := make(map[string]*Window, len(frames))
	for id, w := range h.windows {
		if _, ok := frames[id]; ok {
			targets[id] = w
		}
	}
	h.mu.Unlock()

	var resMu sync.Mutex
	results := make(map[string]*codec.CompressedFrame, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	for id, w := range targets {
		id, w := id, w
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			frame, err := w.Push(frames[id], quality, speed)
			if err != nil {
				return err
			}
			resMu.Lock()
			results[id] = frame
			resMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "PushAll",
		"windows":  len(results),
		"quality":  quality,
		"speed":    speed,
	}).Debug("Encoded window batch")

	return results, nil
}

// Close closes every window in the hub.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var first error
	for id, w := range h.windows {
		if err := w.Close(); err != nil && first == nil {
			first = err
		}
		delete(h.windows, id)
	}
	return first
}
