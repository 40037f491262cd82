// Package terminator is a cross-platform desktop automation framework: given
// a human-readable selector it locates a UI element in any running
// application through the OS accessibility tree and performs validated
// actions on it (click, type, press keys, scroll, drag, highlight,
// screenshot).
//
// The entry point is Desktop:
//
//	desktop, err := terminator.New()
//	if err != nil { ... }
//	defer desktop.Close()
//
//	elem, err := desktop.Locator("role:Window && name:Calculator >> role:Button|name:Seven").
//		First(ctx)
//	if err != nil { ... }
//	err = elem.Click(ctx)
package terminator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tribhuwan-kumar/terminator/internal/config"
	"github.com/tribhuwan-kumar/terminator/internal/core/cache"
	"github.com/tribhuwan-kumar/terminator/internal/core/domain/action"
	derrors "github.com/tribhuwan-kumar/terminator/internal/core/errors"
	"github.com/tribhuwan-kumar/terminator/internal/core/executor"
	"github.com/tribhuwan-kumar/terminator/internal/core/infra/platform"
	"github.com/tribhuwan-kumar/terminator/internal/core/locator"
	"github.com/tribhuwan-kumar/terminator/internal/core/monitor"
	"github.com/tribhuwan-kumar/terminator/internal/core/ports"
	"go.uber.org/zap"
)

// Desktop is the automation session: one platform connection, one element
// cache, one event monitor, shared by every locator and element it hands out.
type Desktop struct {
	platform ports.Platform
	cfg      *config.Config
	logger   *zap.Logger
	cache    *cache.Cache
	engine   *locator.Engine
	executor *executor.Executor
	monitor  *monitor.Monitor

	closeOnce sync.Once
}

// Option configures a Desktop.
type Option func(*desktopParams)

type desktopParams struct {
	cfg        *config.Config
	configPath string
	logger     *zap.Logger
	platform   ports.Platform
}

// WithConfig supplies an explicit configuration, skipping file loading.
func WithConfig(cfg *config.Config) Option {
	return func(p *desktopParams) {
		p.cfg = cfg
	}
}

// WithConfigPath loads configuration from the given TOML file.
func WithConfigPath(path string) Option {
	return func(p *desktopParams) {
		p.configPath = path
	}
}

// WithLogger supplies a logger; the default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *desktopParams) {
		p.logger = logger
	}
}

// WithPlatform substitutes the OS adapter. Embedders and tests use this to
// run the full stack against a fake tree.
func WithPlatform(pf ports.Platform) Option {
	return func(p *desktopParams) {
		p.platform = pf
	}
}

// New creates an automation session and starts its background event monitor.
func New(opts ...Option) (*Desktop, error) {
	params := &desktopParams{}

	for _, opt := range opts {
		opt(params)
	}

	if params.logger == nil {
		params.logger = zap.NewNop()
	}

	cfg := params.cfg
	if cfg == nil {
		loaded, err := config.Load(params.configPath)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	config.SetGlobal(cfg)

	pf := params.platform
	if pf == nil {
		created, err := platform.New(params.logger)
		if err != nil {
			return nil, err
		}

		pf = created
	}

	desktop := &Desktop{
		platform: pf,
		cfg:      cfg,
		logger:   params.logger,
	}

	if cfg.Cache.Enabled {
		desktop.cache = cache.New(
			cfg.Cache.MaxSize,
			time.Duration(cfg.Cache.TTLMs)*time.Millisecond,
			params.logger,
		)
	}

	desktop.engine = locator.NewEngine(pf, desktop.cache, cfg, params.logger)
	desktop.executor = executor.New(pf, cfg, params.logger)

	if cfg.EventMonitor.Enabled {
		desktop.monitor = monitor.New(pf, cfg.EventMonitor.BrowserPrefixes, params.logger)

		if desktop.cache != nil {
			desktop.monitor.AttachCache(desktop.cache)
		}

		if err := desktop.monitor.Start(); err != nil {
			params.logger.Warn("Event monitor unavailable", zap.Error(err))

			desktop.monitor = nil
		}
	}

	return desktop, nil
}

// Close tears the session down: the event monitor unsubscribes, overlays
// close, and the cache drops its handles. Safe to call more than once.
func (d *Desktop) Close() {
	d.closeOnce.Do(func() {
		if d.monitor != nil {
			d.monitor.Stop()
		}

		d.executor.StopHighlighting()

		if d.cache != nil {
			d.cache.InvalidateAll()
		}
	})
}

// OnEvent registers an additional handler for derived monitor signals.
// Returns false when the event monitor is disabled.
func (d *Desktop) OnEvent(handler monitor.Handler) bool {
	if d.monitor == nil {
		return false
	}

	d.monitor.AddHandler(handler)

	return true
}

// App describes one running application with a toplevel window.
type App struct {
	Name        string
	ProcessID   int
	WindowTitle string
}

// ListApplications returns the running applications with toplevel windows.
// This is a fast path: it never walks the full accessibility tree.
func (d *Desktop) ListApplications(ctx context.Context) ([]App, error) {
	infos, err := d.platform.ListApplications(ctx)
	if err != nil {
		return nil, err
	}

	apps := make([]App, 0, len(infos))

	for _, info := range infos {
		apps = append(apps, App{
			Name:        info.Name,
			ProcessID:   info.ProcessID,
			WindowTitle: info.WindowTitle,
		})

		if info.Window != nil {
			info.Window.Release()
		}
	}

	return apps, nil
}

// OpenApplication launches an application by name.
func (d *Desktop) OpenApplication(ctx context.Context, name string) error {
	return d.platform.OpenApplication(ctx, name)
}

// ActivateApplication brings the named application's window to the
// foreground.
func (d *Desktop) ActivateApplication(ctx context.Context, name string) error {
	infos, err := d.platform.ListApplications(ctx)
	if err != nil {
		return err
	}

	var matched ports.NativeNode

	for _, info := range infos {
		if matched == nil && strings.EqualFold(info.Name, name) && info.Window != nil {
			matched = info.Window

			continue
		}

		if info.Window != nil {
			info.Window.Release()
		}
	}

	if matched == nil {
		return derrors.Newf(derrors.CodeElementNotFound, "no running application named %q", name)
	}

	defer matched.Release()

	return d.platform.ActivateWindow(ctx, matched)
}

// Screenshot captures the full desktop as PNG bytes.
func (d *Desktop) Screenshot(ctx context.Context) ([]byte, error) {
	report, err := d.executor.Screenshot(ctx, nil, action.Options{})
	if err != nil {
		return nil, err
	}

	return report.Data, nil
}

// StopHighlighting ends every live highlight overlay immediately.
func (d *Desktop) StopHighlighting() {
	d.executor.StopHighlighting()
}

// CheckPermissions verifies the OS accessibility subsystem is usable.
func (d *Desktop) CheckPermissions(ctx context.Context) error {
	return d.platform.CheckPermissions(ctx)
}
