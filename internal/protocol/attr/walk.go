package attr

import "iter"

// Walker iterates the attribute sequence of a message body. A Walker is
// single pass; walk the body again with a new Walker.
type Walker struct {
	buf    []byte
	offset int
	cur    Attribute
	err    error
}

// NewWalker starts walking body just past a fixed prefix of prefix bytes
// (the family header, e.g. ifinfomsg).
func NewWalker(body []byte, prefix int) *Walker {
	w := &Walker{buf: body, offset: Align(prefix)}
	if prefix < 0 || prefix > len(body) {
		w.err = ErrTruncatedAttribute
	}
	return w
}

// NestedWalker walks the payload of a nested attribute.
func NestedWalker(a Attribute) *Walker {
	return NewWalker(a.Value, 0)
}

// Next advances to the next attribute. It returns false once the body is
// exhausted or a framing error occurs; check Err afterwards. A tail shorter
// than an attribute header is padding and ends the walk cleanly.
func (w *Walker) Next() bool {
	if w.err != nil || len(w.buf)-w.offset < HeaderLen {
		return false
	}
	a, n, err := Decode(w.buf, w.offset)
	if err != nil {
		w.err = err
		return false
	}
	w.cur = a
	w.offset += n
	return true
}

func (w *Walker) Attr() Attribute {
	return w.cur
}

func (w *Walker) Err() error {
	return w.err
}

// Offset reports how many body bytes the walk has consumed.
func (w *Walker) Offset() int {
	return w.offset
}

// All walks body from the prefix, yielding each attribute. A framing error is
// yielded once as the final pair.
func All(body []byte, prefix int) iter.Seq2[Attribute, error] {
	return func(yield func(Attribute, error) bool) {
		w := NewWalker(body, prefix)
		for w.Next() {
			if !yield(w.Attr(), nil) {
				return
			}
		}
		if err := w.Err(); err != nil {
			yield(Attribute{}, err)
		}
	}
}

// Collect decodes every attribute of body. On a framing error nothing decoded
// so far is returned.
func Collect(body []byte, prefix int) ([]Attribute, error) {
	out := make([]Attribute, 0, 8)
	w := NewWalker(body, prefix)
	for w.Next() {
		out = append(out, w.Attr())
	}
	if err := w.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns the first attribute of kind typ, ignoring type flags.
func Find(attrs []Attribute, typ uint16) (Attribute, bool) {
	for _, a := range attrs {
		if a.Kind() == typ {
			return a, true
		}
	}
	return Attribute{}, false
}
