package frame

import "errors"

// Assembler stitches frames that arrive split across transport reads. It
// carries the unconsumed tail of one chunk forward and prepends it to the
// next. An Assembler belongs to a single stream and is not safe for
// concurrent use.
type Assembler struct {
	limits  Limits
	pending []byte
}

func NewAssembler(limits Limits) *Assembler {
	return &Assembler{limits: limits}
}

// Feed scans the carried tail plus chunk. A tail that is only the start of a
// frame is kept for the next call and is not reported as an error. Any other
// stop reason drops the buffered bytes and is returned alongside the frames
// scanned before it.
func (a *Assembler) Feed(chunk []byte) ([]Frame, error) {
	data := chunk
	if len(a.pending) > 0 {
		data = append(a.pending, chunk...)
	}
	frames, n, err := Scan(data, a.limits)
	switch {
	case err == nil:
		a.pending = nil
		return frames, nil
	case errors.Is(err, ErrShortBuffer), errors.Is(err, ErrIncomplete):
		a.pending = append([]byte(nil), data[n:]...)
		return frames, nil
	default:
		a.pending = nil
		return frames, err
	}
}

// Pending is the number of bytes carried into the next Feed.
func (a *Assembler) Pending() int {
	return len(a.pending)
}

func (a *Assembler) Reset() {
	a.pending = nil
}
