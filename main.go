package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/openclaw/pageqr/api"
	"github.com/openclaw/pageqr/config"
	"github.com/openclaw/pageqr/favicon"
	"github.com/openclaw/pageqr/render"
	"github.com/openclaw/pageqr/shortener"
	"github.com/openclaw/pageqr/store"
	"github.com/openclaw/pageqr/widget"
)

var version = "v0.1.0"

func main() {
	root := &cobra.Command{
		Use:   "pageqr",
		Short: "Page QR codes with favicon badges and short links",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A missing .env is normal; the environment may already be set.
			_ = godotenv.Load()
		},
	}

	var configPath string
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")

	// --- start command -------------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start the pageqr HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(configPath)
		},
	})

	// --- render command ------------------------------------------------------
	var (
		renderOut    string
		renderTitle  string
		renderLogo   bool
		renderNoLogo bool
	)
	renderCmd := &cobra.Command{
		Use:   "render [url]",
		Short: "Render the QR code for a URL to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var logo *bool
			if cmd.Flags().Changed("logo") {
				logo = &renderLogo
			}
			if renderNoLogo {
				off := false
				logo = &off
			}
			return runRender(configPath, widget.Page{URL: args[0], Title: renderTitle}, logo, renderOut)
		},
	}
	renderCmd.Flags().StringVarP(&renderOut, "output", "o", "qr.png", "Output PNG path")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "Page title")
	renderCmd.Flags().BoolVar(&renderLogo, "logo", true, "Overlay the site favicon")
	renderCmd.Flags().BoolVar(&renderNoLogo, "no-logo", false, "Render without the favicon")
	root.AddCommand(renderCmd)

	// --- copy command --------------------------------------------------------
	var copyText bool
	copyCmd := &cobra.Command{
		Use:   "copy [url]",
		Short: "Copy the QR code (or the short link with --text) to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCopy(configPath, args[0], copyText)
		},
	}
	copyCmd.Flags().BoolVar(&copyText, "text", false, "Copy the encoded URL as text instead of the image")
	root.AddCommand(copyCmd)

	// --- settings commands ---------------------------------------------------
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the widget settings",
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsGet(configPath)
		},
	})
	var (
		setPosition string
		setTheme    string
		setLogo     bool
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update the stored settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(configPath, func(s *store.Settings) {
				if cmd.Flags().Changed("position") {
					s.Position = store.Position(setPosition)
				}
				if cmd.Flags().Changed("theme") {
					s.Theme = store.Theme(setTheme)
				}
				if cmd.Flags().Changed("logo") {
					s.ShowLogo = setLogo
				}
			})
		},
	}
	setCmd.Flags().StringVar(&setPosition, "position", "", "Button position: left or right")
	setCmd.Flags().StringVar(&setTheme, "theme", "", "Theme: light or dark")
	setCmd.Flags().BoolVar(&setLogo, "logo", true, "Show the favicon in the QR code")
	settingsCmd.AddCommand(setCmd)
	root.AddCommand(settingsCmd)

	// --- status command ------------------------------------------------------
	var statusAddr string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Check the service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(statusAddr)
		},
	}
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8556", "Service HTTP address")
	root.AddCommand(statusCmd)

	// --- version command -----------------------------------------------------
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pageqr %s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the components shared by the commands.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	settings  *store.SettingsStore
	shortener *shortener.Service
	generator *widget.Generator
	clipboard widget.Clipboard
}

// setup loads config and wires every component. Logs go to logOut.
func setup(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	settings, err := store.NewSettingsStore(cfg.SettingsPath(), log)
	if err != nil {
		return nil, fmt.Errorf("open settings store: %w", err)
	}

	short, err := shortener.New(shortener.Options{
		Service:  cfg.Shortener.Service,
		Endpoint: cfg.Shortener.Endpoint,
		Disabled: !cfg.Shortener.Enabled,
		Timeout:  cfg.Shortener.Timeout.Duration,
	}, log)
	if err != nil {
		settings.Close()
		return nil, fmt.Errorf("create shortener: %w", err)
	}

	encoder, err := render.NewEncoder(cfg.QR.Encoder)
	if err != nil {
		settings.Close()
		return nil, fmt.Errorf("create qr encoder: %w", err)
	}

	probe := &http.Client{Timeout: cfg.Favicon.ProbeTimeout.Duration}
	resolver := favicon.NewResolver(probe, log)
	loader := favicon.NewLoader(probe, cfg.Favicon.MaxBytes)
	compositor := render.NewCompositor(encoder, loader, log)

	return &app{
		cfg:       cfg,
		log:       log,
		settings:  settings,
		shortener: short,
		generator: widget.NewGenerator(short, resolver, compositor, log),
		clipboard: newClipboard(cfg.Widget),
	}, nil
}

func (a *app) Close() {
	if err := a.settings.Close(); err != nil {
		a.log.Warn("close settings store", "error", err)
	}
}

// newClipboard picks the image clipboard backend named in the config.
func newClipboard(cfg config.WidgetConfig) widget.Clipboard {
	switch cfg.Clipboard {
	case "none":
		return nil
	case "file":
		return widget.FileClipboard{Path: cfg.ClipboardFile}
	case "command":
		return widget.NewCommandClipboard()
	default:
		if cfg.ClipboardFile != "" {
			return widget.FileClipboard{Path: cfg.ClipboardFile}
		}
		return widget.NewCommandClipboard()
	}
}

// runStart is the main service entrypoint that wires all components together.
func runStart(configPath string) error {
	a, err := setup(configPath, os.Stdout)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, log := a.cfg, a.log

	log.Info("starting pageqr", "version", version, "port", cfg.Port, "data_dir", cfg.DataDir,
		"encoder", cfg.QR.Encoder, "shortener", cfg.Shortener.Service, "shortener_enabled", cfg.Shortener.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := api.NewSessions()
	defer sessions.Close()
	sessions.StartReaper(ctx, time.Minute, cfg.Widget.SessionTTL.Duration, log)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(&api.Server{
			Settings:  a.settings,
			Generator: a.generator,
			Shortener: a.shortener,
			Sessions:  sessions,
			Widget: widget.Options{
				HoverDelay:      cfg.Widget.HoverDelay.Duration,
				TooltipDuration: cfg.Widget.TooltipDuration.Duration,
				RetryDelay:      cfg.Widget.RetryDelay.Duration,
				Clipboard:       a.clipboard,
			},
			RetryDelay: cfg.Widget.RetryDelay.Duration,
			Log:        log,
			Version:    version,
			StartTime:  time.Now(),
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("pageqr is running", "qr_url", fmt.Sprintf("http://localhost:%d/qr?url=https://example.com", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	log.Info("goodbye")
	return nil
}

// runRender writes the QR code for page to out. A nil logo uses the stored
// setting.
func runRender(configPath string, page widget.Page, logo *bool, out string) error {
	a, err := setup(configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	settings := a.settings.Get(ctx)
	if logo != nil {
		settings.ShowLogo = *logo
	}

	res := a.generator.Run(ctx, page, settings, a.cfg.Widget.RetryDelay.Duration)
	if !res.OK() {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}
	if err := os.WriteFile(out, res.Result.PNG, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("%s -> %s\n", res.Text, out)
	return nil
}

// runCopy copies the QR image, or with text the encoded URL, to the clipboard.
func runCopy(configPath, rawURL string, text bool) error {
	a, err := setup(configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if text {
		short := a.shortener.Shorten(ctx, rawURL)
		if err := widget.CopyText(short); err != nil {
			return fmt.Errorf("copy text: %w", err)
		}
		fmt.Println(widget.MsgCopied + ": " + short)
		return nil
	}

	if a.clipboard == nil {
		return widget.ErrNoClipboard
	}
	res := a.generator.Run(ctx, widget.Page{URL: rawURL}, a.settings.Get(ctx), a.cfg.Widget.RetryDelay.Duration)
	if !res.OK() {
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	}
	if err := a.clipboard.WriteImage(ctx, res.Result.PNG); err != nil {
		fmt.Println(widget.MsgCopyFailed)
		return err
	}
	fmt.Println(widget.MsgCopied)
	return nil
}

func runSettingsGet(configPath string) error {
	a, err := setup(configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.settings.Get(context.Background())
	fmt.Printf("position: %s\ntheme: %s\nshowLogo: %t\n", s.Position, s.Theme, s.ShowLogo)
	return nil
}

func runSettingsSet(configPath string, mutate func(*store.Settings)) error {
	a, err := setup(configPath, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	s := a.settings.Get(ctx)
	mutate(&s)
	s = s.Normalize()
	if err := a.settings.Set(ctx, s); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	fmt.Printf("position: %s\ntheme: %s\nshowLogo: %t\n", s.Position, s.Theme, s.ShowLogo)
	return nil
}

// runStatus queries the service HTTP status endpoint.
func runStatus(addr string) error {
	resp, err := http.Get(addr + "/status")
	if err != nil {
		return fmt.Errorf("failed to reach pageqr at %s: %w", addr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	fmt.Println(string(body))
	return nil
}
