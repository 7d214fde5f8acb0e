package ctl

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/exp/rand"

	"github.com/llxisdsh/dict"
	"github.com/llxisdsh/dict/logger"
	"github.com/llxisdsh/dict/metrics"
)

// checkEvery is how many operations run between two context checks.
const checkEvery = 1024

// LoadCommand represents a command that drives a synthetic workload
// through a Dict and reports how its tables evolved.
type LoadCommand struct {
	// Number of keys to insert.
	N int
	// Remove every key divisible by RemoveEvery after loading; 0 keeps all.
	RemoveEvery int
	// Insert keys in a random order seeded by Seed.
	Shuffle bool
	Seed    uint64
	// Time budget for each explicit migration phase.
	MigrateBudget time.Duration
	// Log resize events.
	Verbose bool

	// Dict configuration.
	Config dict.Config

	// Standard input/output
	*CmdIO
}

// NewLoadCommand returns a new instance of LoadCommand.
func NewLoadCommand(stdin io.Reader, stdout, stderr io.Writer) *LoadCommand {
	return &LoadCommand{
		N:             9000,
		RemoveEvery:   4,
		Seed:          1,
		MigrateBudget: time.Second,
		Config:        *dict.NewConfig(),
		CmdIO:         NewCmdIO(stdin, stdout, stderr),
	}
}

// phase is one row of the report.
type phase struct {
	name     string
	elapsed  time.Duration
	stats    *dict.Stats
	comments string
}

// Run executes the load.
func (cmd *LoadCommand) Run(ctx context.Context) error {
	if cmd.N <= 0 {
		return errors.New("key count required")
	} else if cmd.RemoveEvery < 0 {
		return errors.Errorf("invalid remove-every: %d", cmd.RemoveEvery)
	}
	if err := cmd.Config.Validate(); err != nil {
		return errors.Wrap(err, "validating config")
	}

	log := logger.NopLogger
	if cmd.Verbose {
		log = logger.NewVerboseLogger(cmd.Stderr)
	}
	d := dict.New[uint64, uint64](dict.WithConfig(cmd.Config), dict.WithLogger(log.WithPrefix("[dict] ")))
	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewCollector(d, "load")); err != nil {
		return errors.Wrap(err, "registering collector")
	}

	keys := make([]uint64, cmd.N)
	for i := range keys {
		keys[i] = uint64(i)
	}
	if cmd.Shuffle {
		r := rand.New(rand.NewSource(cmd.Seed))
		r.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	}

	var phases []phase
	record := func(name string, start time.Time, comments string) {
		phases = append(phases, phase{name: name, elapsed: time.Since(start), stats: d.Stats(), comments: comments})
	}

	begin := time.Now()

	// Insert.
	start := time.Now()
	migrations := 0
	for i, k := range keys {
		if i%checkEvery == 0 && ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "inserting")
		}
		migrating := d.IsMigrating()
		if !d.Add(k, k) {
			return errors.Errorf("inserting key %d: already present", k)
		}
		if !migrating && d.IsMigrating() {
			migrations++
		}
	}
	record("insert", start, fmt.Sprintf("%d migrations started", migrations))

	// Finish whatever the inserts left behind.
	start = time.Now()
	batches := d.MigrateFor(cmd.MigrateBudget)
	if d.IsMigrating() {
		return errors.Errorf("migration did not finish within %s", cmd.MigrateBudget)
	}
	record("migrate", start, fmt.Sprintf("%d batches", batches))

	// Remove.
	removed := 0
	if cmd.RemoveEvery > 0 {
		start = time.Now()
		for i, k := range keys {
			if i%checkEvery == 0 && ctx.Err() != nil {
				return errors.Wrap(ctx.Err(), "removing")
			}
			if k%uint64(cmd.RemoveEvery) != 0 {
				continue
			}
			if !d.Remove(k) {
				return errors.Errorf("removing key %d: not found", k)
			}
			removed++
		}
		record("remove", start, fmt.Sprintf("%d keys removed", removed))
	}

	// Verify.
	start = time.Now()
	for _, k := range keys {
		want := cmd.RemoveEvery == 0 || k%uint64(cmd.RemoveEvery) != 0
		v, ok := d.Get(k)
		if ok != want || (ok && v != k) {
			return errors.Errorf("verifying key %d: got %d (%v), expected present=%v", k, v, ok, want)
		}
	}
	if size := d.Size(); size != cmd.N-removed {
		return errors.Errorf("verifying size: got %d, expected %d", size, cmd.N-removed)
	}
	record("verify", start, "")

	// Scan.
	start = time.Now()
	seen := make(map[uint64]struct{}, d.Size())
	cursor, calls := uint64(0), 0
	for {
		cursor = d.Scan(cursor, func(k, _ uint64) {
			seen[k] = struct{}{}
		})
		calls++
		if cursor == 0 {
			break
		}
	}
	if len(seen) != d.Size() {
		return errors.Errorf("scan visited %d distinct keys, expected %d", len(seen), d.Size())
	}
	record("scan", start, fmt.Sprintf("%d calls", calls))

	// Shrink.
	start = time.Now()
	d.Shrink()
	batches = d.MigrateFor(cmd.MigrateBudget)
	record("shrink", start, fmt.Sprintf("%d batches", batches))

	cmd.writePhases(phases)
	if err := cmd.writeMetrics(reg); err != nil {
		return err
	}
	cmd.Logger().Infof("load of %d keys finished in %s", cmd.N, time.Since(begin))
	return nil
}

func (cmd *LoadCommand) writePhases(phases []phase) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.Stdout)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"phase", "elapsed", "entries", "buckets", "target", "max chain", "comments"})
	for _, p := range phases {
		t.AppendRow(table.Row{
			p.name,
			p.elapsed.Round(time.Microsecond),
			p.stats.Size,
			p.stats.Buckets,
			p.stats.TargetBuckets,
			p.stats.MaxChain,
			p.comments,
		})
	}
	t.Render()
	cmd.Stdout.Write([]byte("\n"))
}

func (cmd *LoadCommand) writeMetrics(g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	t := table.NewWriter()
	t.SetOutputMirror(cmd.Stdout)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"metric", "value"})
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			}
			t.AppendRow(table.Row{mf.GetName(), v})
		}
	}
	t.Render()
	return nil
}
