// Package widget implements the floating QR widget: a hover-driven state
// machine that generates the page's QR code, shows it through a Presenter
// and copies it to a Clipboard.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/openclaw/pageqr/store"
)

// Default timings.
const (
	DefaultHoverDelay      = 300 * time.Millisecond
	DefaultTooltipDuration = 2 * time.Second
	DefaultRetryDelay      = time.Second
)

// Tooltip and control labels.
const (
	MsgCopied     = "QR code copied"
	MsgCopyFailed = "Copy failed, please retry"

	labelHideLogo = "Hide logo"
	labelShowLogo = "Show logo"
)

// ErrNotMounted is returned by actions on a widget that is not mounted.
var ErrNotMounted = errors.New("widget not mounted")

// SettingsStore persists the preference record.
type SettingsStore interface {
	Get(ctx context.Context) store.Settings
	Set(ctx context.Context, settings store.Settings) error
}

// Options configures a Widget. Zero values take the defaults; a nil
// Scheduler uses the wall clock.
type Options struct {
	HoverDelay      time.Duration
	TooltipDuration time.Duration
	RetryDelay      time.Duration
	Scheduler       Scheduler
	Clipboard       Clipboard
}

// Widget is the controller for one page. It is safe for concurrent use.
type Widget struct {
	page      Page
	settings  SettingsStore
	gen       *Generator
	presenter Presenter
	clipboard Clipboard
	sched     Scheduler
	log       *slog.Logger

	hoverDelay      time.Duration
	tooltipDuration time.Duration
	retryDelay      time.Duration

	mu       sync.Mutex
	state    ViewState
	png      []byte
	mounted  bool
	hovering bool
	ctx      context.Context
	cancel   context.CancelFunc

	hoverTimer   Timer
	hoverArm     uint64
	tooltipTimer Timer
	tooltipArm   uint64
	retryTimer   Timer
	// genSeq numbers generation runs; only the latest started run may
	// publish its result.
	genSeq uint64
}

// New returns an unmounted Widget for page.
func New(page Page, settings SettingsStore, gen *Generator, presenter Presenter, opts Options, log *slog.Logger) *Widget {
	w := &Widget{
		page:            page,
		settings:        settings,
		gen:             gen,
		presenter:       presenter,
		clipboard:       opts.Clipboard,
		sched:           opts.Scheduler,
		log:             log.With("page", page.URL),
		hoverDelay:      opts.HoverDelay,
		tooltipDuration: opts.TooltipDuration,
		retryDelay:      opts.RetryDelay,
	}
	if w.sched == nil {
		w.sched = ClockScheduler{}
	}
	if w.hoverDelay <= 0 {
		w.hoverDelay = DefaultHoverDelay
	}
	if w.tooltipDuration <= 0 {
		w.tooltipDuration = DefaultTooltipDuration
	}
	if w.retryDelay <= 0 {
		w.retryDelay = DefaultRetryDelay
	}
	return w
}

// Page returns the page the widget is attached to.
func (w *Widget) Page() Page {
	return w.page
}

// Mount loads settings, resolves the button icon and mounts the presenter.
// No QR code is generated until the pointer has hovered for the hover delay.
func (w *Widget) Mount(ctx context.Context) error {
	settings := w.settings.Get(ctx)
	icon := w.gen.Favicon(ctx, w.page)

	state := ViewState{
		Settings:    settings,
		Icon:        icon,
		SiteName:    w.page.SiteName(),
		Title:       w.page.DisplayTitle(),
		Secure:      w.page.Secure(),
		ToggleLabel: toggleLabel(settings.ShowLogo),
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mounted {
		return nil
	}
	if err := w.presenter.Mount(state); err != nil {
		return err
	}
	w.state = state
	w.mounted = true
	w.ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.log.Debug("widget mounted", "position", settings.Position, "theme", settings.Theme)
	return nil
}

// Unmount cancels pending timers and in-flight work and unmounts the
// presenter.
func (w *Widget) Unmount() {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.mounted = false
	w.hovering = false
	stopTimer(w.hoverTimer)
	stopTimer(w.tooltipTimer)
	stopTimer(w.retryTimer)
	w.hoverTimer, w.tooltipTimer, w.retryTimer = nil, nil, nil
	w.genSeq++
	w.cancel()
	w.mu.Unlock()

	w.presenter.Unmount()
	w.log.Debug("widget unmounted")
}

// State returns a copy of the current view state.
func (w *Widget) State() ViewState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// PointerEnter arms the hover timer.
func (w *Widget) PointerEnter() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}

	w.hovering = true
	w.state.Active = true
	stopTimer(w.hoverTimer)
	w.hoverArm++
	arm := w.hoverArm
	w.hoverTimer = w.sched.AfterFunc(w.hoverDelay, func() { w.expand(arm) })
	w.publishLocked()
}

// PointerLeave handles the pointer leaving the safe area: the hover timer is
// cancelled and the QR container hidden.
func (w *Widget) PointerLeave() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}

	w.hovering = false
	w.state.Active = false
	stopTimer(w.hoverTimer)
	w.hoverTimer = nil
	w.hoverArm++
	w.state.Expanded = false
	w.state.Visible = false
	w.publishLocked()
}

// ToggleLogo flips showLogo, persists it and regenerates the QR code.
func (w *Widget) ToggleLogo(ctx context.Context) error {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return ErrNotMounted
	}
	settings := w.state.Settings
	settings.ShowLogo = !settings.ShowLogo
	w.state.Settings = settings
	w.state.ToggleLabel = toggleLabel(settings.ShowLogo)
	w.publishLocked()
	w.mu.Unlock()

	if err := w.settings.Set(ctx, settings); err != nil {
		w.log.Error("failed to save settings", "error", err)
	}

	w.generate(w.lifecycle())
	return nil
}

// Regenerate runs a fresh generation regardless of any cached result.
func (w *Widget) Regenerate() error {
	w.mu.Lock()
	mounted := w.mounted
	w.mu.Unlock()
	if !mounted {
		return ErrNotMounted
	}
	w.generate(w.lifecycle())
	return nil
}

// Copy re-rasterises the displayed QR code, writes it to the clipboard and
// shows a self-dismissing tooltip with the result. It returns
// ErrNothingToCopy, without a tooltip, when no QR code is displayed.
func (w *Widget) Copy(ctx context.Context) error {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return ErrNotMounted
	}
	data := w.png
	w.mu.Unlock()

	if data == nil {
		return ErrNothingToCopy
	}

	err := w.writeClipboard(ctx, data)
	if err != nil {
		w.log.Error("failed to copy QR code", "error", err)
		w.showTooltip(MsgCopyFailed)
		return err
	}
	w.showTooltip(MsgCopied)
	return nil
}

// --- internals ---

func (w *Widget) writeClipboard(ctx context.Context, data []byte) error {
	if w.clipboard == nil {
		return ErrNoClipboard
	}
	img, err := rasterize(data)
	if err != nil {
		return err
	}
	return w.clipboard.WriteImage(ctx, img)
}

// expand runs when the hover timer fires.
func (w *Widget) expand(arm uint64) {
	w.mu.Lock()
	if !w.mounted || !w.hovering || arm != w.hoverArm {
		w.mu.Unlock()
		return
	}
	w.hoverTimer = nil
	w.state.Expanded = true
	ctx := w.ctx

	if w.state.HasContainer {
		w.state.Visible = true
		w.publishLocked()
		w.mu.Unlock()
		w.autoCopy(ctx)
		return
	}
	w.publishLocked()
	w.mu.Unlock()

	w.generate(ctx)

	w.mu.Lock()
	if !w.mounted || !w.hovering {
		w.mu.Unlock()
		return
	}
	w.state.Visible = true
	w.publishLocked()
	w.mu.Unlock()
	w.autoCopy(ctx)
}

func (w *Widget) autoCopy(ctx context.Context) {
	if err := w.Copy(ctx); err != nil && !errors.Is(err, ErrNothingToCopy) {
		w.log.Debug("auto copy failed", "error", err)
	}
}

// generate starts a new run, clearing the container, and blocks until it
// completes. A failed run schedules one retry.
func (w *Widget) generate(ctx context.Context) {
	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.genSeq++
	seq := w.genSeq
	settings := w.state.Settings
	stopTimer(w.retryTimer)
	w.retryTimer = nil
	w.png = nil
	w.state.HasContainer = true
	w.state.Generating = true
	w.state.QRImage = ""
	w.state.QRText = ""
	w.state.Message = ""
	w.publishLocked()
	w.mu.Unlock()

	out := w.gen.Generate(ctx, w.page, settings)
	if !w.apply(seq, out) || !out.Retry {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted || seq != w.genSeq {
		return
	}
	w.retryTimer = w.sched.AfterFunc(w.retryDelay, func() {
		w.apply(seq, w.gen.Retry(ctx, w.page, settings))
	})
}

// apply publishes out if seq is still the latest run.
func (w *Widget) apply(seq uint64, out Outcome) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted || seq != w.genSeq {
		w.log.Debug("discarding stale QR generation", "seq", seq, "latest", w.genSeq)
		return false
	}

	w.state.Generating = out.Retry
	w.state.QRText = out.Text
	w.state.Message = out.Message
	if out.OK() {
		w.png = out.Result.PNG
		w.state.QRImage = out.DataURI()
		w.state.Generating = false
	}
	w.publishLocked()
	return true
}

func (w *Widget) showTooltip(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.mounted {
		return
	}

	w.state.Tooltip = msg
	w.state.TooltipVisible = true
	stopTimer(w.tooltipTimer)
	w.tooltipArm++
	arm := w.tooltipArm
	w.tooltipTimer = w.sched.AfterFunc(w.tooltipDuration, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.mounted || arm != w.tooltipArm {
			return
		}
		w.state.TooltipVisible = false
		w.tooltipTimer = nil
		w.publishLocked()
	})
	w.publishLocked()
}

func (w *Widget) lifecycle() context.Context {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ctx == nil {
		return context.Background()
	}
	return w.ctx
}

func (w *Widget) publishLocked() {
	if w.mounted {
		w.presenter.Update(w.state)
	}
}

func toggleLabel(showLogo bool) string {
	if showLogo {
		return labelHideLogo
	}
	return labelShowLogo
}
