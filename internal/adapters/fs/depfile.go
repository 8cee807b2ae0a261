package fs

import (
	"os"
	"strings"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.DependencyScanner = (*DepfileScanner)(nil)

// DepfileScanner reads Makefile-style depfiles as written by compilers with -MD.
type DepfileScanner struct{}

// NewDepfileScanner creates a new DepfileScanner.
func NewDepfileScanner() *DepfileScanner {
	return &DepfileScanner{}
}

// Scan returns the prerequisites listed in the depfile at path, in order and
// without duplicates. Output names left of each colon are ignored.
func (s *DepfileScanner) Scan(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from a prototype declaration
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrDepfileParseFailed.Error()), "path", path)
	}
	deps, err := ParseDepfile(string(data))
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return deps, nil
}

// ParseDepfile parses depfile contents.
//
// A backslash before a newline continues the rule on the next line. A
// backslash before a space, '#' or another backslash escapes it, and "$$"
// stands for a single '$'.
func ParseDepfile(data string) ([]string, error) {
	p := depParser{seen: make(map[string]bool)}
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '\\' && i+1 < len(data):
			next := data[i+1]
			switch {
			case next == '\n':
				p.flush()
				i++
			case next == '\r' && i+2 < len(data) && data[i+2] == '\n':
				p.flush()
				i += 2
			case next == ' ' || next == '#' || next == '\\':
				p.word.WriteByte(next)
				i++
			default:
				p.word.WriteByte(c)
			}
		case c == '$' && i+1 < len(data) && data[i+1] == '$':
			p.word.WriteByte('$')
			i++
		case c == ':' && (i+1 == len(data) || isSpace(data[i+1])):
			p.flush()
			if p.inPrereqs || !p.hasTarget {
				return nil, zerr.With(domain.ErrDepfileParseFailed, "offset", i)
			}
			p.inPrereqs = true
		case c == '\n':
			if err := p.endRule(i); err != nil {
				return nil, err
			}
		case isSpace(c):
			p.flush()
		default:
			p.word.WriteByte(c)
		}
	}
	if err := p.endRule(len(data)); err != nil {
		return nil, err
	}
	return p.deps, nil
}

type depParser struct {
	word      strings.Builder
	hasTarget bool
	inPrereqs bool
	deps      []string
	seen      map[string]bool
}

func (p *depParser) flush() {
	if p.word.Len() == 0 {
		return
	}
	w := p.word.String()
	p.word.Reset()
	if !p.inPrereqs {
		p.hasTarget = true
		return
	}
	if !p.seen[w] {
		p.seen[w] = true
		p.deps = append(p.deps, w)
	}
}

func (p *depParser) endRule(offset int) error {
	p.flush()
	if p.hasTarget && !p.inPrereqs {
		return zerr.With(domain.ErrDepfileParseFailed, "offset", offset)
	}
	p.hasTarget, p.inPrereqs = false, false
	return nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
