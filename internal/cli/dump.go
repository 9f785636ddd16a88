package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/probe"
	"github.com/aretw0/probe/internal/logging"
	"github.com/aretw0/probe/pkg/domain"
)

// Dumper analyses values and writes them in one output format.
type Dumper struct {
	Inspector *probe.Inspector
	Format    string
	Budget    int
	Stats     bool
	Logger    *slog.Logger
}

// Dump analyses v under name and renders it to w.
func (d *Dumper) Dump(w io.Writer, v any, name string) (*probe.Inspection, error) {
	in := d.Inspector.Analyse(v, name)
	if err := Render(w, in, d.Format, d.Budget); err != nil {
		return in, err
	}
	if d.Stats {
		fmt.Fprintln(w)
		WriteStats(w, in.Stats(d.Budget))
	}
	d.report(in)
	return in, nil
}

// Snapshot analyses v and materialises the tree without rendering it.
func (d *Dumper) Snapshot(v any, name string) domain.Snapshot {
	in := d.Inspector.Analyse(v, name)
	snap := in.Snapshot(d.Budget)
	d.report(in)
	return snap
}

func (d *Dumper) report(in *probe.Inspection) {
	logger := d.logger()
	for _, err := range in.Diagnostics() {
		logger.Debug("Recovered during analysis", "err", err)
	}
	if in.Broken() {
		logger.Warn("Analysis stopped early, the runtime or memory budget ran out")
	}
}

func (d *Dumper) logger() *slog.Logger {
	if d.Logger == nil {
		return logging.NewNop()
	}
	return d.Logger
}
