// Package runner drives an agent tick by tick and hands every drained report
// to the configured consumers.
package runner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"gridbot.ai/internal/agent"
	"gridbot.ai/internal/agent/report"
	"gridbot.ai/internal/metrics"
	"gridbot.ai/internal/persistence/indexdb"
	tlog "gridbot.ai/internal/persistence/log"
)

// NewSource returns the exploration RNG for seed. Runs with the same seed and
// world make the same choices.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// Runner owns the report buffer between the agent and its consumers. The
// world must send its events to Report.
type Runner struct {
	RunID  string
	Agent  *agent.Agent
	World  agent.World
	Report *report.Report

	// Optional consumers.
	Ticks   *tlog.TickLogger
	Index   *indexdb.SQLiteIndex
	Metrics *metrics.Metrics
	// Advance is called after every tick, e.g. to move a local world clock.
	Advance func()
	// OnTick sees every entry after it was written.
	OnTick func(tlog.TickEntry)
	// Check is consulted before every tick; a non-nil error ends Run.
	Check func() error

	Log *zap.Logger
}

type Result struct {
	Ticks      int
	Completed  int
	Terminated bool
	Stats      agent.Stats
}

// Step runs one tick and returns the drained entry. Consumer errors are
// returned after every consumer has seen the entry.
func (r *Runner) Step() (tlog.TickEntry, error) {
	start := time.Now()
	r.Agent.Tick(r.World, r.Report)
	entry := tlog.TickEntry{RunID: r.RunID, Tick: r.Report.Drain(), Stats: r.Agent.Stats()}
	d := time.Since(start)
	if r.Advance != nil {
		r.Advance()
	}

	var firstErr error
	if r.Ticks != nil {
		if err := r.Ticks.WriteTick(entry); err != nil {
			firstErr = fmt.Errorf("tick log: %w", err)
		}
	}
	if r.Index != nil {
		if err := r.Index.WriteTick(r.RunID, entry.Tick); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("index: %w", err)
		}
	}
	r.Metrics.ObserveTick(entry.Tick, entry.Stats, d)
	if r.OnTick != nil {
		r.OnTick(entry)
	}
	return entry, firstErr
}

// Run steps until the agent terminates, maxTicks ticks ran (0 means no cap),
// ctx is done or Check fails.
func (r *Runner) Run(ctx context.Context, maxTicks int) (Result, error) {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	var res Result
	for maxTicks <= 0 || res.Ticks < maxTicks {
		if err := ctx.Err(); err != nil {
			return r.result(res), err
		}
		if r.Check != nil {
			if err := r.Check(); err != nil {
				return r.result(res), err
			}
		}
		entry, err := r.Step()
		res.Ticks++
		if err != nil {
			log.Warn("tick consumer failed", zap.Uint64("tick", entry.Tick.Tick), zap.Error(err))
		}
		if entry.Terminate {
			break
		}
	}
	return r.result(res), nil
}

func (r *Runner) result(res Result) Result {
	res.Stats = r.Agent.Stats()
	res.Completed = res.Stats.Completed
	res.Terminated = res.Stats.Terminated
	return res
}
