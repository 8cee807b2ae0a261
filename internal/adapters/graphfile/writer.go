package graphfile

import (
	"bufio"
	"io"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/zerr"
)

// Writer encodes graphs.
type Writer struct{}

// NewWriter creates a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write encodes g to out. The output depends only on the graph's shape and state.
func (w *Writer) Write(out io.Writer, g *domain.Graph) error {
	enc := &encoder{
		w:    bufio.NewWriter(out),
		keys: make(map[*domain.Target]uint64, g.Len()),
	}
	root := g.Root()
	enc.assign(root)

	enc.bytes([]byte(Magic))
	enc.u32(Version)
	enc.record(root)

	if enc.err == nil {
		enc.err = enc.w.Flush()
	}
	if enc.err != nil {
		return zerr.Wrap(enc.err, domain.ErrGraphWriteFailed.Error())
	}
	return nil
}

type encoder struct {
	w    *bufio.Writer
	keys map[*domain.Target]uint64
	buf  [8]byte
	err  error
}

// assign numbers the owned tree in the order records are written.
func (e *encoder) assign(t *domain.Target) {
	e.keys[t] = uint64(len(e.keys) + 1)
	for _, c := range t.Children() {
		e.assign(c)
	}
}

func (e *encoder) record(t *domain.Target) {
	e.u64(e.keys[t])
	e.str(t.ID())
	e.u64(uint64(encodeTime(t.Timestamp())))
	e.u64(t.Signature())
	e.u32(uint32(t.Flags()))

	children := t.Children()
	e.u64(uint64(len(children)))
	for _, c := range children {
		e.record(c)
	}
	e.refs(t.Dependencies())
	e.refs(t.ImplicitDependencies())
}

func (e *encoder) refs(targets []*domain.Target) {
	e.u64(uint64(len(targets)))
	for _, t := range targets {
		e.u64(e.keys[t])
	}
}

func (e *encoder) str(s string) {
	if len(s) > maxStringLen && e.err == nil {
		e.err = zerr.With(domain.ErrTargetIDTooLong, "length", len(s))
		return
	}
	e.u64(uint64(len(s)))
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
	}
}

func (e *encoder) bytes(b []byte) {
	if e.err == nil {
		_, e.err = e.w.Write(b)
	}
}

func (e *encoder) u32(v uint32) {
	order.PutUint32(e.buf[:4], v)
	e.bytes(e.buf[:4])
}

func (e *encoder) u64(v uint64) {
	order.PutUint64(e.buf[:], v)
	e.bytes(e.buf[:])
}
