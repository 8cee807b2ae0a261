package builder

import (
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sweet/internal/core/domain"
)

// Expand renders the command of t's prototype. Commands run in the graph
// root, so $in, $out and $dir are root-relative paths. An argument that is
// exactly $in expands to one argument per input; "$$" is a literal dollar.
func Expand(g *domain.Graph, t *domain.Target) domain.Command {
	proto := t.Prototype()
	if proto == nil {
		return domain.Command{Dir: g.RootDir()}
	}

	inputs := Inputs(t)
	r := replacer(t, inputs)

	args := make([]string, 0, len(proto.Command))
	for _, arg := range proto.Command {
		if arg == "$in" || arg == "${in}" {
			args = append(args, inputs...)
			continue
		}
		args = append(args, r.Replace(arg))
	}

	var env map[string]string
	if len(proto.Environment) > 0 {
		env = make(map[string]string, len(proto.Environment))
		for k, v := range proto.Environment {
			env[k] = r.Replace(v)
		}
	}
	return domain.Command{Args: args, Dir: g.RootDir(), Env: env}
}

// Depfile returns the root-relative depfile path of t, or "" if its
// prototype declares none.
func Depfile(t *domain.Target) string {
	proto := t.Prototype()
	if proto == nil || proto.Depfile == "" {
		return ""
	}
	return replacer(t, Inputs(t)).Replace(proto.Depfile)
}

// Inputs returns the paths of t's explicit file dependencies.
func Inputs(t *domain.Target) []string {
	var inputs []string
	for _, dep := range t.Dependencies() {
		if dep.Has(domain.FlagBoundToFile) {
			inputs = append(inputs, filepath.FromSlash(dep.ID()))
		}
	}
	return inputs
}

func replacer(t *domain.Target, inputs []string) *strings.Replacer {
	out := filepath.FromSlash(t.ID())
	dir := filepath.FromSlash(path.Dir(t.ID()))
	in := strings.Join(inputs, " ")
	return strings.NewReplacer(
		"$$", "$",
		"${in}", in,
		"${out}", out,
		"${dir}", dir,
		"$in", in,
		"$out", out,
		"$dir", dir,
	)
}

// Signature hashes everything about cmd that changes its output.
func Signature(cmd domain.Command, depfile string) uint64 {
	h := xxhash.New()
	for _, arg := range cmd.Args {
		_, _ = h.WriteString(arg)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1})
	for _, k := range slices.Sorted(maps.Keys(cmd.Env)) {
		_, _ = h.WriteString(k)
		_, _ = h.Write([]byte{'='})
		_, _ = h.WriteString(cmd.Env[k])
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.Write([]byte{1})
	_, _ = h.WriteString(depfile)
	return h.Sum64()
}
