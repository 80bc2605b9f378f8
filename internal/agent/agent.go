// Package agent is the per-tick decision core of the cleanup robot.
//
// One call to Agent.Tick senses the surroundings, turns new sightings into
// tasks, keeps or picks the current task and issues exactly one world request
// for it (a move, an action or a relocation). The agent owns all of its
// scheduling state and is driven by a single caller; it starts no goroutines.
package agent

import (
	"fmt"

	"go.uber.org/zap"

	"gridbot.ai/internal/agent/explore"
	"gridbot.ai/internal/agent/extract"
	"gridbot.ai/internal/agent/navigate"
	"gridbot.ai/internal/agent/report"
	"gridbot.ai/internal/agent/tasks"
	"gridbot.ai/internal/agent/teleport"
	"gridbot.ai/internal/grid"
)

type ScanMode string

const (
	ScanFull        ScanMode = "full"
	ScanDirectional ScanMode = "directional"
	ScanAuto        ScanMode = "auto"
)

type Config struct {
	// Goal is the number of completed tasks after which Terminate is raised.
	Goal int

	// DepositThreshold is the carried garbage count bins only become tasks
	// above. Zero deposits whenever anything is carried; negative values use
	// extract.DefaultDepositThreshold.
	DepositThreshold int

	ScanMode             ScanMode
	ScanDistance         int
	DirectionalEnergyMin int

	// MaxTaskFailures drops the current task after that many consecutive
	// failed requests. Zero retries forever.
	MaxTaskFailures int
}

func (c Config) withDefaults() Config {
	if c.DepositThreshold < 0 {
		c.DepositThreshold = extract.DefaultDepositThreshold
	}
	if c.ScanMode == "" {
		c.ScanMode = ScanFull
	}
	if c.ScanDistance <= 0 {
		c.ScanDistance = 3
	}
	if c.DirectionalEnergyMin <= 0 {
		c.DirectionalEnergyMin = 50
	}
	return c
}

type Stats struct {
	Tick              uint64      `json:"tick"`
	Completed         int         `json:"completed"`
	Pending           int         `json:"pending"`
	Seen              int         `json:"seen"`
	Current           *tasks.Task `json:"current,omitempty"`
	ActiveTeleports   int         `json:"active_teleports"`
	InactiveTeleports int         `json:"inactive_teleports"`
	Terminated        bool        `json:"terminated"`

	SensingFailures int `json:"sensing_failures"`
	ActionFailures  int `json:"action_failures"`
	Undetermined    int `json:"undetermined"`
	Dropped         int `json:"dropped"`
	Relocations     int `json:"relocations"`
}

type Agent struct {
	cfg Config
	log *zap.Logger

	sched     *tasks.Scheduler
	teleports *teleport.Registry
	director  *explore.Director
	extractor *extract.Extractor

	tick       uint64
	completed  int
	terminated bool

	// Coordinate the shortcut is suppressed at: where the last relocation
	// landed or failed. Cleared implicitly once the agent stands elsewhere.
	noShortcutAt    grid.Coordinate
	hasNoShortcutAt bool

	taskFailures int
	stats        Stats
}

func New(cfg Config, rng explore.Source, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	sched := tasks.NewScheduler()
	reg := teleport.NewRegistry()
	return &Agent{
		cfg:       cfg,
		log:       logger,
		sched:     sched,
		teleports: reg,
		director:  explore.NewDirector(rng),
		extractor: extract.New(sched, reg, cfg.DepositThreshold),
	}
}

func (a *Agent) Config() Config { return a.cfg }

// Tick runs one full decision cycle against w and writes discoveries and the
// termination flag into r. World events reach r through whatever sink the
// world was given; the host drains r after Tick returns.
func (a *Agent) Tick(w World, r *report.Report) {
	a.tick++
	r.SetTick(a.tick)
	log := a.log.With(zap.Uint64("tick", a.tick))

	view := a.sense(w, log)
	res := a.extractor.Extract(view, w.Carried(grid.Garbage), r)
	for _, t := range res.Queued {
		log.Debug("task queued", zap.Stringer("task", t), zap.Int("priority", t.Priority()))
	}

	a.decide(w, log)

	if a.completed >= a.cfg.Goal {
		if !a.terminated {
			log.Info("goal reached", zap.Int("completed", a.completed), zap.Int("goal", a.cfg.Goal))
		}
		a.terminated = true
	}
	r.SetCompleted(a.completed)
	r.SetTerminate(a.terminated)
}

func (a *Agent) sense(w World, log *zap.Logger) grid.View {
	if a.useDirectional(w) {
		dir := a.director.NextScan()
		a.director.RecordScan(dir)
		v, err := w.SenseDirection(dir, a.cfg.ScanDistance)
		if err != nil {
			a.stats.SensingFailures++
			log.Warn("directional scan failed",
				zap.Stringer("dir", dir),
				zap.Error(fmt.Errorf("%w: %v", ErrSensing, err)))
		}
		return v
	}
	v, err := w.Sense()
	if err != nil {
		a.stats.SensingFailures++
		log.Warn("scan failed", zap.Error(fmt.Errorf("%w: %v", ErrSensing, err)))
	}
	return v
}

func (a *Agent) useDirectional(w World) bool {
	switch a.cfg.ScanMode {
	case ScanDirectional:
		return true
	case ScanAuto:
		e := w.Energy()
		return e > a.cfg.DirectionalEnergyMin && e%2 == 0
	default:
		return false
	}
}

func (a *Agent) decide(w World, log *zap.Logger) {
	pos := w.Position()
	log = log.With(zap.Stringer("pos", pos))

	prev, hadTask := a.sched.Current()
	task, ok := a.sched.Next()
	if !ok {
		a.idle(w, pos, log)
		return
	}
	if !hadTask || prev != task {
		a.taskFailures = 0
		if path, _, err := navigate.Path(pos, task.Target); err == nil {
			log.Debug("task started", zap.Stringer("task", task), zap.Int("moves", len(path)))
		}
	}
	log = log.With(zap.Stringer("task", task))

	d, err := navigate.Step(pos, task.Target)
	if err != nil {
		// Standing on the target leaves no direction to act in; the task is
		// abandoned without counting it.
		a.stats.Undetermined++
		a.stats.Dropped++
		a.sched.Drop()
		log.Warn("dropping task", zap.Error(err))
		return
	}

	switch d.Kind {
	case navigate.Move:
		if err := a.move(w, d.Dir); err != nil {
			log.Warn("move failed", zap.Stringer("dir", d.Dir), zap.Error(err))
			a.taskFailed(log)
		}
	case navigate.Act:
		if err := a.act(w, task, d.Dir); err != nil {
			log.Warn("action failed", zap.Stringer("dir", d.Dir), zap.Error(err))
			a.taskFailed(log)
			return
		}
		a.completed++
		a.sched.Complete()
		log.Info("task completed", zap.Int("completed", a.completed))
	}
}

func (a *Agent) taskFailed(log *zap.Logger) {
	a.taskFailures++
	if a.cfg.MaxTaskFailures > 0 && a.taskFailures >= a.cfg.MaxTaskFailures {
		a.stats.Dropped++
		a.sched.Drop()
		log.Warn("dropping task after repeated failures", zap.Int("failures", a.taskFailures))
		a.taskFailures = 0
	}
}

// idle relocates through a known teleport shortcut or explores. The one
// exception is the coordinate the last teleport attempt landed on (or failed
// from): until the agent steps off it, it explores instead, so two teleports
// never bounce an idle agent back and forth.
func (a *Agent) idle(w World, pos grid.Coordinate, log *zap.Logger) {
	if !a.hasNoShortcutAt || a.noShortcutAt != pos {
		if to, ok := a.teleports.Shortcut(pos); ok {
			a.hasNoShortcutAt = true
			if err := w.Teleport(to); err != nil {
				a.stats.ActionFailures++
				a.noShortcutAt = pos
				log.Warn("teleport failed", zap.Stringer("to", to),
					zap.Error(fmt.Errorf("%w: %v", ErrAction, err)))
				return
			}
			a.stats.Relocations++
			a.noShortcutAt = to
			log.Debug("teleported", zap.Stringer("to", to))
			return
		}
	}
	dir := a.director.NextMove()
	if err := a.move(w, dir); err != nil {
		log.Debug("explore move failed", zap.Stringer("dir", dir), zap.Error(err))
	}
}

// move records dir as the last move whether or not the world accepted it.
func (a *Agent) move(w World, dir grid.Direction) error {
	a.director.RecordMove(dir)
	if err := w.Move(dir); err != nil {
		a.stats.ActionFailures++
		return fmt.Errorf("%w: move %s: %v", ErrAction, dir, err)
	}
	a.hasNoShortcutAt = false
	return nil
}

func (a *Agent) act(w World, t tasks.Task, dir grid.Direction) error {
	var err error
	switch t.Action {
	case tasks.ExtinguishFire, tasks.ClearGarbage:
		err = w.Destroy(dir)
	case tasks.DepositGarbage:
		err = w.Deposit(dir, grid.Garbage, w.Carried(grid.Garbage))
	default:
		err = fmt.Errorf("unknown action %s", t.Action)
	}
	if err != nil {
		a.stats.ActionFailures++
		return fmt.Errorf("%w: %s %s: %v", ErrAction, t.Action, dir, err)
	}
	return nil
}

func (a *Agent) Terminated() bool { return a.terminated }

func (a *Agent) Completed() int { return a.completed }

func (a *Agent) Scheduler() *tasks.Scheduler { return a.sched }

func (a *Agent) Teleports() *teleport.Registry { return a.teleports }

func (a *Agent) Memory() explore.Memory { return a.director.Memory() }

func (a *Agent) Stats() Stats {
	s := a.stats
	s.Tick = a.tick
	s.Completed = a.completed
	s.Pending = a.sched.Pending()
	s.Seen = a.sched.SeenCount()
	s.ActiveTeleports = a.teleports.Count(true)
	s.InactiveTeleports = a.teleports.Count(false)
	s.Terminated = a.terminated
	if t, ok := a.sched.Current(); ok {
		s.Current = &t
	}
	return s
}
