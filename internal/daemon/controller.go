// Package daemon runs the coordination loop that ties the window model, the
// workspace manager, the layout engine and the accessibility registry
// together.
//
// Every piece of mutable state belongs to the goroutine running
// Controller.Run. Other goroutines (discovery workers, the IPC server, the
// config watcher, the reconciler) talk to it by message passing: results
// and closures are posted on channels and answered on per-call reply
// channels.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/1broseidon/dwindle/internal/ax"
	"github.com/1broseidon/dwindle/internal/config"
	"github.com/1broseidon/dwindle/internal/platform"
	"github.com/1broseidon/dwindle/internal/tiling"
	"github.com/1broseidon/dwindle/internal/windows"
	"github.com/1broseidon/dwindle/internal/workspace"
)

// frameInterval paces animation frames.
const frameInterval = time.Second / 60

// ErrStopped is returned by calls made after Run has returned.
var ErrStopped = errors.New("daemon is not running")

// Options configures a Controller. Backend, Registry and Config are
// required.
type Options struct {
	Backend  platform.Backend
	Registry *ax.Registry
	Config   *config.Config
	// ConfigPath is reread by Reload. Empty disables Reload.
	ConfigPath string
	Logger     *slog.Logger
	// Now replaces the clock for animations.
	Now func() time.Time
	// ProcessExists overrides the liveness probe used by Maintain. It
	// defaults to the registry's probe.
	ProcessExists func(pid int) bool
}

// Controller is the orchestrator. Construct it with NewController and
// start it with Run.
type Controller struct {
	backend    platform.Backend
	registry   *ax.Registry
	logger     *slog.Logger
	configPath string
	now        func() time.Time
	exists     func(pid int) bool
	started    time.Time

	cfg    *config.Config
	model  *windows.Model
	spaces *workspace.Manager
	engine *tiling.Engine

	sessions       map[int]*ax.Session
	focusedMonitor workspace.MonitorID
	focused        windows.Handle
	settled        map[windows.Handle]platform.Rect
	pushed         map[windows.Handle]platform.Rect
	subscribed     map[platform.WindowID]struct{}

	discovering bool
	rediscover  bool
	// runCtx is the context of Run, set before the loop starts.
	runCtx context.Context

	commands chan func()
	results  chan discoveryPass
	stopped  chan struct{}
}

func NewController(opts Options) (*Controller, error) {
	if opts.Backend == nil || opts.Registry == nil {
		return nil, errors.New("daemon: backend and registry are required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	exists := opts.ProcessExists
	switch {
	case exists != nil:
	case opts.Registry != nil:
		exists = opts.Registry.ProcessExists
	default:
		exists = ax.ProcessExists
	}

	model := windows.NewModel()
	c := &Controller{
		backend:    opts.Backend,
		registry:   opts.Registry,
		logger:     logger,
		configPath: opts.ConfigPath,
		now:        now,
		exists:     exists,
		started:    now(),
		model:      model,
		spaces:     workspace.NewManager(model, logger.With("component", "workspace")),
		engine:     tiling.NewEngine(tiling.DefaultSettings()),
		sessions:   make(map[int]*ax.Session),
		settled:    make(map[windows.Handle]platform.Rect),
		pushed:     make(map[windows.Handle]platform.Rect),
		subscribed: make(map[platform.WindowID]struct{}),
		commands:   make(chan func()),
		results:    make(chan discoveryPass, 1),
		stopped:    make(chan struct{}),
	}
	c.engine.SetClock(now)
	if err := c.applyConfig(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// Run drives the coordination loop until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.stopped)
	c.runCtx = ctx

	interval := c.cfg.Discovery.Interval
	if interval <= 0 {
		interval = config.DefaultConfig().Discovery.Interval
	}
	discovery := time.NewTicker(interval)
	defer discovery.Stop()

	var (
		anim   *time.Ticker
		animC  <-chan time.Time
		events = c.backend.Events()
	)
	defer func() {
		if anim != nil {
			anim.Stop()
		}
	}()

	c.logger.Info("daemon started", "discovery_interval", interval)
	c.startDiscovery(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("daemon stopped")
			return nil
		case <-discovery.C:
			c.startDiscovery(ctx)
		case pass := <-c.results:
			c.discovering = false
			c.applyDiscovery(pass)
			if c.rediscover {
				c.rediscover = false
				c.startDiscovery(ctx)
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.handleEvent(ctx, ev)
		case fn := <-c.commands:
			fn()
		case <-animC:
			now := c.now()
			c.engine.TickAnimations(now)
			c.flush(now)
		}

		switch running := c.engine.HasAnimations(); {
		case running && anim == nil:
			anim = time.NewTicker(frameInterval)
			animC = anim.C
		case !running && anim != nil:
			anim.Stop()
			anim, animC = nil, nil
			c.flush(c.now())
		}
	}
}

type reply[T any] struct {
	val T
	err error
}

// call runs fn on the coordination goroutine and waits for its answer.
func call[T any](ctx context.Context, c *Controller, fn func() (T, error)) (T, error) {
	var zero T
	out := make(chan reply[T], 1)
	job := func() {
		v, err := fn()
		out <- reply[T]{val: v, err: err}
	}
	select {
	case c.commands <- job:
	case <-c.stopped:
		return zero, ErrStopped
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-out:
		return r.val, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// ApplyConfig installs cfg: workspace settings, floating apps and layout
// settings. The previous configuration stays in effect when cfg is
// rejected.
func (c *Controller) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	_, err := call(ctx, c, func() (struct{}, error) {
		if err := c.applyConfig(cfg); err != nil {
			return struct{}{}, err
		}
		c.relayout()
		c.rediscoverSoon()
		return struct{}{}, nil
	})
	return err
}

func (c *Controller) applyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	settings, err := cfg.WorkspaceSettings()
	if err != nil {
		return fmt.Errorf("invalid workspace settings: %w", err)
	}
	c.cfg = cfg
	c.spaces.ApplySettings(settings)
	c.registry.Policy().SetAlwaysFloat(cfg.FloatingApps)
	c.engine.SetDefaultSettings(cfg.ResolvedFor("").TilingSettings())
	return nil
}

// rediscoverSoon starts a discovery pass, or queues one behind the pass in
// flight.
func (c *Controller) rediscoverSoon() {
	if c.runCtx == nil {
		return
	}
	c.startDiscovery(c.runCtx)
}

// Reload rereads the configuration file.
func (c *Controller) Reload(ctx context.Context) error {
	if c.configPath == "" {
		return errors.New("no configuration file to reload")
	}
	res, err := config.LoadFromPath(c.configPath)
	if err != nil {
		return fmt.Errorf("reload %s: %w", c.configPath, err)
	}
	if err := c.ApplyConfig(ctx, res.Config); err != nil {
		return err
	}
	c.logger.Info("config reloaded", "path", c.configPath)
	return nil
}

// Refresh runs a discovery pass and waits until it has been applied.
func (c *Controller) Refresh(ctx context.Context) error {
	known, err := call(ctx, c, func() ([]int, error) { return c.knownPIDs(), nil })
	if err != nil {
		return err
	}
	pass := c.discover(ctx, known)
	_, err = call(ctx, c, func() (struct{}, error) {
		c.applyDiscovery(pass)
		return struct{}{}, nil
	})
	return err
}

func (c *Controller) focusedWorkspace() (workspace.Workspace, bool) {
	if _, ok := c.spaces.Monitor(c.focusedMonitor); !ok {
		mons := c.spaces.Monitors()
		if len(mons) == 0 {
			return workspace.Workspace{}, false
		}
		c.focusedMonitor = mons[0].ID
	}
	return c.spaces.ActiveWorkspaceOrFirst(c.focusedMonitor)
}
