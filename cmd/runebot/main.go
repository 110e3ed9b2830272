package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kaolin/runebot/internal/api"
	"github.com/kaolin/runebot/internal/bot"
	"github.com/kaolin/runebot/internal/camera"
	"github.com/kaolin/runebot/internal/collision"
	"github.com/kaolin/runebot/internal/config"
	"github.com/kaolin/runebot/internal/data"
	"github.com/kaolin/runebot/internal/errhandle"
	"github.com/kaolin/runebot/internal/event"
	"github.com/kaolin/runebot/internal/humanize"
	"github.com/kaolin/runebot/internal/input"
	"github.com/kaolin/runebot/internal/interact"
	"github.com/kaolin/runebot/internal/monitor"
	"github.com/kaolin/runebot/internal/nav"
	"github.com/kaolin/runebot/internal/pathfind"
	"github.com/kaolin/runebot/internal/persist"
	"github.com/kaolin/runebot/internal/scripting"
	"github.com/kaolin/runebot/internal/state"
)

var (
	flagConfig  string
	flagDataDir string
)

func main() {
	root := &cobra.Command{
		Use:           "runebot",
		Short:         "Game automation runtime driven by local telemetry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config/runebot.toml", "path to the TOML profile")
	root.PersistentFlags().StringVar(&flagDataDir, "data", "data/tables", "directory holding the YAML tables")

	root.AddCommand(runCmd(), probeCmd(), calibrateCmd(), sessionsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(profile, mode string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              runebot  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      telemetry-driven game automation     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mprofile:\033[0m %s \033[90m(mode: %s)\033[0m\n\n", profile, mode)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printSkip(msg string) {
	fmt.Printf("  \033[90m-\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── run ────────────────────────────────────────────────────────────

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot with the configured profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot()
		},
	}
}

func runBot() error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(flagConfig, cfg.Profile.Mode)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	client := api.NewClient(cfg.Telemetry.Port, log)

	printSection("interfaces")

	drv, err := input.NewXdoDriver(log)
	if err != nil {
		return fmt.Errorf("input driver: %w", err)
	}
	synth := input.NewSynthesizer(drv, cfg.Input.ScreenWidth, cfg.Input.ScreenHeight, rng, log)
	printOK("input driver ready")

	if _, ok := client.GameState(); !ok {
		log.Warn("telemetry endpoint not answering yet",
			zap.Int("port", cfg.Telemetry.Port))
		printSkip("telemetry offline (will keep polling)")
	} else {
		printOK(fmt.Sprintf("telemetry on port %d", cfg.Telemetry.Port))
	}

	printSection("data")

	tables, err := data.LoadTables(flagDataDir)
	if err != nil {
		return fmt.Errorf("load tables: %w", err)
	}
	printOK("static tables loaded")

	var pf nav.Pathfinder
	cmap, err := collision.Open(cfg.Collision.ArchivePath, cfg.Collision.CacheSize, log)
	if err != nil {
		log.Warn("collision data unavailable, navigation falls back to linear paths", zap.Error(err))
		printSkip("collision map missing")
	} else {
		defer cmap.Close()
		pf = pathfind.NewFinder(cmap, pathfind.ParseVariance(cfg.Nav.Variance), cfg.Nav.PathCacheSize, rng, log)
		printOK("collision map and pathfinder ready")
	}

	engine, err := scripting.NewEngine(cfg.Profile.Script, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer engine.Close()
	if cfg.Profile.Script != "" {
		printOK(fmt.Sprintf("policy script %s", cfg.Profile.Script))
	} else {
		printSkip("no policy script")
	}

	printSection("services")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sessions *persist.SessionRepo
	if cfg.Database.DSN != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		sessions = persist.NewSessionRepo(db)
		printOK("session store connected")
	} else {
		printSkip("session store disabled")
	}

	var mon *monitor.Server
	if cfg.Monitor.Enabled {
		mon = monitor.NewServer(cfg.Monitor.BindAddress, log)
		if err := mon.Start(); err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			mon.Shutdown(shCtx)
			cancel()
		}()
		printOK(fmt.Sprintf("monitor feed on %s", cfg.Monitor.BindAddress))
	} else {
		printSkip("monitor feed disabled")
	}

	bus := event.NewBus()
	if cfg.Events.Enabled {
		recv := event.NewReceiver(cfg.Events.BindAddress, bus, log)
		if err := recv.Start(); err != nil {
			return fmt.Errorf("event receiver: %w", err)
		}
		defer func() {
			shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			recv.Shutdown(shCtx)
			cancel()
		}()
		printOK(fmt.Sprintf("event receiver on %s", cfg.Events.BindAddress))
	} else {
		printSkip("event receiver disabled")
	}

	// Core assembly. The session control is created first so the humanizer
	// can hold it before the bot exists.
	cam := camera.NewController(client, synth, rng, log)
	it := interact.NewInteractor(client, cam, synth, rng, log)
	navigator := nav.NewNavigator(client, pf, synth, cfg.Nav, rng, log)
	sc := bot.NewSessionControl()
	hum := humanize.NewHumanizer(cfg.Humanize, client, synth, sc, rng, log)
	machine := state.NewMachine(log)
	errh := errhandle.NewHandler(log)
	policy := bot.NewConfigPolicy(cfg.Profile, tables, engine)

	b := bot.New(bot.Deps{
		Tel:      client,
		Synth:    synth,
		Nav:      navigator,
		Interact: it,
		Camera:   cam,
		Human:    hum,
		Errors:   errh,
		Machine:  machine,
		Policy:   policy,
		InvUI:    cfg.Inventory,
		Profile:  flagConfig,
		Bus:      bus,
		Monitor:  mon,
		Sessions: sessions,
		RNG:      rng,
		Log:      log,
	})
	sc.Bind(b)

	fmt.Println()
	printSection("ready")
	printReady(fmt.Sprintf("mode %s, profile %s", cfg.Profile.Mode, flagConfig))
	fmt.Println()

	if err := b.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	log.Info("bot stopped")
	return nil
}

// ── probe ──────────────────────────────────────────────────────────

func probeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check every telemetry endpoint and report availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log := zap.NewNop()
			client := api.NewClient(cfg.Telemetry.Port, log)

			checks := []struct {
				name string
				ok   func() bool
			}{
				{"/gameState", func() bool { _, ok := client.GameState(); return ok }},
				{"/stats", func() bool { _, ok := client.Stats(); return ok }},
				{"/player", func() bool { _, ok := client.Player(); return ok }},
				{"/coords", func() bool { _, ok := client.Coords(); return ok }},
				{"/combat", func() bool { _, ok := client.Combat(); return ok }},
				{"/animation", func() bool { _, ok := client.Animation(); return ok }},
				{"/inv", func() bool { _, ok := client.Inventory(); return ok }},
				{"/equip", func() bool { _, ok := client.Equipment(); return ok }},
				{"/npcs_in_viewport", func() bool { _, ok := client.NpcsInViewport(); return ok }},
				{"/objects_in_viewport", func() bool { _, ok := client.ObjectsInViewport(); return ok }},
				{"/camera", func() bool { _, ok := client.Camera(); return ok }},
				{"/menu", func() bool { _, ok := client.Menu(); return ok }},
				{"/widgets", func() bool { _, ok := client.Widgets(); return ok }},
				{"/viewport", func() bool { _, ok := client.Viewport(); return ok }},
			}

			printSection(fmt.Sprintf("telemetry probe :%d", cfg.Telemetry.Port))
			failures := 0
			for _, c := range checks {
				if c.ok() {
					lat, _ := client.LastLatency(strings.SplitN(c.name, "?", 2)[0])
					printOK(fmt.Sprintf("%-22s %s", c.name, lat.Round(time.Millisecond)))
				} else {
					failures++
					fmt.Printf("  \033[31m✗\033[0m %s\n", c.name)
				}
			}
			fmt.Println()
			if failures > 0 {
				return fmt.Errorf("%d endpoint(s) unavailable", failures)
			}
			return nil
		},
	}
}

// ── calibrate ──────────────────────────────────────────────────────

func calibrateCmd() *cobra.Command {
	var offsetPx int
	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Measure minimap pixels-per-tile by clicking a fixed offset",
		Long: "Clicks the minimap a fixed pixel offset due north of center, waits for\n" +
			"the avatar to settle, then derives pixels-per-tile from the observed\n" +
			"tile displacement. Requires a logged-in client with open ground north.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			log, err := newLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			client := api.NewClient(cfg.Telemetry.Port, log)
			start, ok := client.Coords()
			if !ok {
				return fmt.Errorf("telemetry unavailable on port %d", cfg.Telemetry.Port)
			}
			if cam, ok := client.Camera(); ok && cam.Yaw != 0 {
				fmt.Printf("  \033[33m!\033[0m camera yaw is %d; face north (yaw 0) for a clean measurement\n", cam.Yaw)
			}

			drv, err := input.NewXdoDriver(log)
			if err != nil {
				return fmt.Errorf("input driver: %w", err)
			}
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			synth := input.NewSynthesizer(drv, cfg.Input.ScreenWidth, cfg.Input.ScreenHeight, rng, log)

			printSection("calibration")
			fmt.Printf("  start      (%d, %d, %d)\n", start.World.X, start.World.Y, start.World.Plane)
			fmt.Printf("  clicking   %d px due north of minimap center\n", offsetPx)

			synth.MoveTo(cfg.Nav.MinimapCenterX, cfg.Nav.MinimapCenterY-offsetPx, 300*time.Millisecond, 0.6)
			synth.Click(input.ButtonLeft)

			// Wait for the walk to finish: position stable across two polls.
			var end api.CoordsSnapshot
			prev := start
			for i := 0; i < 20; i++ {
				time.Sleep(time.Second)
				cur, ok := client.Coords()
				if !ok {
					continue
				}
				if i > 2 && cur.World == prev.World {
					end = cur
					break
				}
				prev = cur
				end = cur
			}

			tilesNorth := end.World.Y - start.World.Y
			fmt.Printf("  end        (%d, %d, %d)\n", end.World.X, end.World.Y, end.World.Plane)
			if tilesNorth <= 0 {
				return fmt.Errorf("no northward movement observed; is the path blocked?")
			}
			measured := float64(offsetPx) / float64(tilesNorth)
			fmt.Printf("  moved      %d tiles north\n", tilesNorth)
			fmt.Println()
			printReady(fmt.Sprintf("measured %.2f px/tile (config has %.2f)", measured, cfg.Nav.PixelsPerTile))
			fmt.Printf("  set nav.pixels_per_tile = %.2f in %s\n", measured, flagConfig)
			return nil
		},
	}
	cmd.Flags().IntVar(&offsetPx, "offset", 40, "click offset in pixels north of minimap center")
	return cmd
}

// ── sessions ───────────────────────────────────────────────────────

func sessionsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List recent bot sessions from the stats database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.DSN == "" {
				return fmt.Errorf("database.dsn is not configured")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			db, err := persist.NewDB(ctx, cfg.Database, zap.NewNop())
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer db.Close()

			sessions, err := persist.NewSessionRepo(db).Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("no sessions recorded")
				return nil
			}

			fmt.Printf("  %-36s  %-10s  %-19s  %9s  %6s  %6s  %6s\n",
				"id", "mode", "started", "xp", "kills", "loots", "banks")
			for _, s := range sessions {
				fmt.Printf("  %-36s  %-10s  %-19s  %9d  %6d  %6d  %6d\n",
					s.ID, s.Mode, s.StartedAt.Format("2006-01-02 15:04:05"),
					s.XPGained, s.Kills, s.Loots, s.BankTrips)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of sessions to list")
	return cmd
}

// ── logging ────────────────────────────────────────────────────────

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
