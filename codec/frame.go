package codec

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/framecast/framecast/pixbuf"
)

// frameState tracks the lifecycle of a FrameWrapper's underlying frame
// handle, which must be freed exactly once.
type frameState int

const (
	// frameLive: the wrapper aliases decoder-owned memory.
	frameLive frameState = iota
	// frameDetached: the wrapper holds its own copy; the decoder memory
	// was handed back.
	frameDetached
	// frameReleased: the handle was freed; the wrapper is dead.
	frameReleased
)

// FrameWrapper is the ownership-tracking handle returned by
// Decoder.Decode. It backs a pixel buffer with decoder-owned memory
// until the frame is detached (Clone) or released.
//
// The buffer stays valid only until the producing Decoder performs
// another Decode or is closed; at that boundary the Decoder upgrades
// every still-live wrapper to an owned copy itself, so a wrapper held
// across the boundary keeps working, just no longer zero-copy.
type FrameWrapper struct {
	mu    sync.Mutex
	buf   *pixbuf.Buffer
	state frameState
	owner *Decoder
}

// Buffer returns the wrapped pixel buffer. While the wrapper is live the
// buffer's Owned flag is false and the zero-copy rules apply.
func (w *FrameWrapper) Buffer() (*pixbuf.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == frameReleased {
		return nil, fmt.Errorf("%w: buffer access after release", ErrOwnershipViolation)
	}
	return w.buf, nil
}

// Clone detaches the wrapper from decoder-owned memory and returns an
// owned deep copy, safe to retain indefinitely. Cloning an already
// detached wrapper returns the existing owned buffer. Cloning after
// Release is an ownership violation.
func (w *FrameWrapper) Clone() (*pixbuf.Buffer, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case frameReleased:
		return nil, fmt.Errorf("%w: clone after release", ErrOwnershipViolation)
	case frameDetached:
		return w.buf, nil
	}
	w.detachLocked("Clone")
	return w.buf, nil
}

// Release frees the underlying frame handle and removes the wrapper from
// the owning decoder's outstanding set. Releasing twice is an ownership
// violation; releasing an already detached wrapper is a no-op since the
// decoder memory was handed back at detach time.
func (w *FrameWrapper) Release() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case frameReleased:
		return fmt.Errorf("%w: double release", ErrOwnershipViolation)
	case frameDetached:
		w.state = frameReleased
		return nil
	}
	w.state = frameReleased
	w.buf = nil
	if w.owner != nil {
		w.owner.unregister(w)
	}
	return nil
}

// detachLocked copies the aliased planes into an owned buffer and hands
// the decoder memory back. Caller holds w.mu.
func (w *FrameWrapper) detachLocked(reason string) {
	owned := w.buf.Clone()
	w.buf = owned
	w.state = frameDetached
	if w.owner != nil {
		w.owner.unregister(w)

		logrus.WithFields(logrus.Fields{
			"function":   "detach",
			"context_id": w.owner.id,
			"reason":     reason,
			"frame":      owned.String(),
		}).Debug("Frame detached from decoder memory")
	}
}

// forceDetach upgrades a still-live wrapper to an owned copy. Called by
// the owning decoder's sweep before the aliased memory is invalidated.
func (w *FrameWrapper) forceDetach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != frameLive {
		return
	}
	w.detachLocked("sweep")
}
