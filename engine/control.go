package engine

import (
	"fmt"

	"github.com/momentics/evservice/api"
	"github.com/momentics/evservice/control"
)

// engineControl implements api.Control directly against a single Engine,
// reusing the engine's own metrics registry rather than standing up a
// second one, so Stats() reflects the same counters the dispatch loop
// updates. Config and readable knobs are separate: an engine's tuning
// (spin/poll iterations, poll interval) is fixed at New and exposed here
// for inspection only: SetConfig can overwrite those keys in the snapshot,
// but that does not change how the engine runs.
type engineControl struct {
	config  *control.ConfigStore
	metrics *control.MetricsRegistry
	debug   *control.DebugProbes
}

// newEngineControl seeds a control surface from an already-constructed
// engine: its tuning knobs go into the config snapshot, a per-engine
// thread-count probe is registered alongside the platform probes, and the
// engine's own metrics registry is reused verbatim.
func newEngineControl(e *Engine) *engineControl {
	c := &engineControl{
		config:  control.NewConfigStore(),
		metrics: e.metrics,
		debug:   control.NewDebugProbes(),
	}
	control.RegisterPlatformProbes(c.debug)

	c.config.SetConfig(map[string]any{
		"engine.id":               e.ID(),
		"engine.thread_num":       e.ThreadNum(),
		"engine.worker_num":       e.WorkerNum(),
		"engine.spin_iterations":  e.opts.SpinIterations,
		"engine.poll_iterations":  e.opts.PollIterations,
		"engine.poll_interval_us": e.opts.PollInterval.Microseconds(),
	})

	c.debug.RegisterProbe(fmt.Sprintf("engine.%d.thread_num", e.ID()), func() any {
		return e.ThreadNum()
	})

	return c
}

func (c *engineControl) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

func (c *engineControl) SetConfig(cfg map[string]any) error {
	c.config.SetConfig(cfg)
	return nil
}

func (c *engineControl) Stats() map[string]any {
	combined := make(map[string]any)
	for k, v := range c.config.GetSnapshot() {
		combined[k] = v
	}
	if stats, err := c.metrics.GetSnapshot(); err == nil {
		for k, v := range stats {
			combined[k] = v
		}
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

func (c *engineControl) OnReload(fn func()) {
	c.config.OnReload(fn)
	control.RegisterReloadHook(fn)
}

func (c *engineControl) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

var _ api.Control = (*engineControl)(nil)
