package graphfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/zerr"
)

// Reader decodes graphs, reporting invalid files through an ErrorReporter.
type Reader struct {
	reporter ports.ErrorReporter
}

// NewReader creates a Reader reporting through r.
func NewReader(r ports.ErrorReporter) *Reader {
	return &Reader{reporter: r}
}

// formatError marks a decoding failure caused by file contents rather than I/O.
type formatError struct {
	err error
}

func (e *formatError) Error() string { return e.err.Error() }
func (e *formatError) Unwrap() error { return e.err }

type pendingRefs struct {
	target   *domain.Target
	deps     []uint64
	implicit []uint64
}

// Read decodes a graph from in. name identifies the stream in reported messages.
//
// A stream that is not a graph file, or carries an unsupported version, is
// reported once and yields no graph. I/O failures are returned without a report.
func (rd *Reader) Read(in io.Reader, name string) (*domain.Graph, error) {
	dec := &decoder{r: bufio.NewReader(in)}

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(dec.r, magic); err != nil || string(magic) != Magic {
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, zerr.Wrap(err, domain.ErrGraphReadFailed.Error())
		}
		return rd.invalid(name, domain.ErrInvalidGraphFile)
	}

	version := dec.u32()
	if dec.err != nil {
		return nil, zerr.Wrap(dec.err, domain.ErrGraphReadFailed.Error())
	}
	if version != Version {
		rd.reporter.Error(fmt.Sprintf("The file '%s' has unsupported dependency graph version %d", name, version))
		return nil, zerr.With(domain.ErrUnsupportedGraphVersion, "version", version)
	}

	g := domain.NewGraph("")
	dec.graph = g
	dec.byKey = make(map[uint64]*domain.Target)
	dec.record(nil)
	if dec.err != nil {
		var ferr *formatError
		if errors.As(dec.err, &ferr) {
			return rd.invalid(name, ferr.err)
		}
		return nil, zerr.Wrap(dec.err, domain.ErrGraphReadFailed.Error())
	}

	if err := dec.resolve(); err != nil {
		return rd.invalid(name, err)
	}
	return g, nil
}

func (rd *Reader) invalid(name string, cause error) (*domain.Graph, error) {
	rd.reporter.Error(fmt.Sprintf("The file '%s' is not a valid dependency graph", name))
	return nil, zerr.With(zerr.Wrap(cause, domain.ErrInvalidGraphFile.Error()), "file", name)
}

type decoder struct {
	r     *bufio.Reader
	graph *domain.Graph
	byKey map[uint64]*domain.Target
	refs  []pendingRefs
	buf   [8]byte
	err   error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = &formatError{err: err}
	}
}

// record reads one target and its owned children, creating them in stream order.
func (d *decoder) record(parent *domain.Target) {
	key := d.u64()
	id := d.str()
	ts := decodeTime(int64(d.u64()))
	sig := d.u64()
	flags := domain.Flags(d.u32())
	if d.err != nil {
		return
	}
	if _, dup := d.byKey[key]; dup || key == 0 {
		d.fail(zerr.With(domain.ErrInvalidGraphFile, "key", key))
		return
	}

	t, err := d.graph.Restore(parent, id, ts, sig, flags)
	if err != nil {
		d.fail(err)
		return
	}
	d.byKey[key] = t

	n := d.count()
	for i := uint64(0); i < n && d.err == nil; i++ {
		d.record(t)
	}

	refs := pendingRefs{target: t}
	refs.deps = d.keys()
	refs.implicit = d.keys()
	if d.err == nil {
		d.refs = append(d.refs, refs)
	}
}

// resolve turns every refer entry into an edge once all targets exist.
func (d *decoder) resolve() error {
	for _, p := range d.refs {
		for _, k := range p.deps {
			dep, ok := d.byKey[k]
			if !ok {
				return zerr.With(domain.ErrDanglingReference, "key", k)
			}
			if err := d.graph.AddDependency(p.target, dep); err != nil {
				return err
			}
		}
		for _, k := range p.implicit {
			dep, ok := d.byKey[k]
			if !ok {
				return zerr.With(domain.ErrDanglingReference, "key", k)
			}
			if err := d.graph.AddImplicitDependency(p.target, dep); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) keys() []uint64 {
	n := d.count()
	if d.err != nil || n == 0 {
		return nil
	}
	out := make([]uint64, 0, min(n, 1024))
	for i := uint64(0); i < n && d.err == nil; i++ {
		out = append(out, d.u64())
	}
	return out
}

func (d *decoder) count() uint64 {
	n := d.u64()
	if d.err == nil && n > maxCount {
		d.fail(zerr.With(domain.ErrInvalidGraphFile, "count", n))
	}
	return n
}

func (d *decoder) str() string {
	n := d.u64()
	if d.err != nil {
		return ""
	}
	if n > maxStringLen {
		d.fail(zerr.With(domain.ErrInvalidGraphFile, "length", n))
		return ""
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.err = err
		return ""
	}
	return string(b)
}

func (d *decoder) u32() uint32 {
	if d.err != nil {
		return 0
	}
	if _, err := io.ReadFull(d.r, d.buf[:4]); err != nil {
		d.err = err
		return 0
	}
	return order.Uint32(d.buf[:4])
}

func (d *decoder) u64() uint64 {
	if d.err != nil {
		return 0
	}
	if _, err := io.ReadFull(d.r, d.buf[:]); err != nil {
		d.err = err
		return 0
	}
	return order.Uint64(d.buf[:])
}
