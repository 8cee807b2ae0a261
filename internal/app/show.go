package app

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/sweet/internal/ui/style"
)

// Show prints the owned target tree with the state of every target.
func (a *App) Show(ctx context.Context, opts SessionOptions) error {
	s, err := a.open(ctx, opts)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(a.stdout, style.Directory.Render(s.root))
	for _, child := range s.graph.Root().Children() {
		printTarget(a.stdout, child, 1)
	}
	return nil
}

func printTarget(w io.Writer, t *domain.Target, depth int) {
	indent := strings.Repeat("  ", depth)
	name := path.Base(t.ID())

	if t.Has(domain.FlagDirectory) && t.Prototype() == nil {
		_, _ = fmt.Fprintf(w, "%s%s\n", indent, style.Directory.Render(name+"/"))
	} else {
		icon := style.UpToDate.Render(style.Check)
		if t.Outdated() {
			icon = style.Outdated.Render(style.Dot)
		}
		line := indent + icon + " " + name
		if flags := t.Flags().String(); flags != "" {
			line += " " + style.Muted.Render("["+flags+"]")
		}
		_, _ = fmt.Fprintln(w, line)

		for _, dep := range t.Dependencies() {
			_, _ = fmt.Fprintf(w, "%s    %s\n", indent, style.Muted.Render(style.Arrow+" "+dep.ID()))
		}
		for _, dep := range t.ImplicitDependencies() {
			_, _ = fmt.Fprintf(w, "%s    %s\n", indent, style.Muted.Render(style.Arrow+" "+dep.ID()+" (implicit)"))
		}
	}

	for _, child := range t.Children() {
		printTarget(w, child, depth+1)
	}
}
