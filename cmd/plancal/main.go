package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"plancal/internal/caldate"
	"plancal/internal/config"
	"plancal/internal/ics"
	appLog "plancal/internal/log"
	"plancal/internal/refresh"
	"plancal/internal/schedule"
	"plancal/internal/snapshot"
	"plancal/internal/web"
)

const shutdownTimeout = 10 * time.Second

type flagConfig struct {
	configPath string
	listen     string
	logLevel   string
	once       bool
	exportFrom string
	exportTo   string
}

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to read .env", "error", err.Error())
	}

	flags := parseFlags()
	appLog.SetLevel(appLog.ParseLevel(flags.logLevel))
	defer appLog.Sync()

	appLog.Info("plancal starting", "version", "0.1.0")

	if err := run(flags); err != nil {
		appLog.Error("plancal failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("plancal exiting")
}

func run(flags flagConfig) error {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", flags.configPath, err)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"snapshot", conf.Snapshot,
		"refresh", conf.RefreshCron,
		"color_preference", conf.ColorPreference,
		"ics_count", len(conf.ICS),
		"basic_auth", conf.BasicAuth != nil,
	)

	store := snapshot.NewStore(nil)
	fetcher := ics.NewFetcher(conf.ICSCacheDir, nil)
	worker := refresh.NewWorker(conf, store, fetcher, loc)
	engine := schedule.New(schedule.Options{
		Preference: conf.ColorPreference,
		Location:   loc,
		HeaderRows: conf.HeaderRows,
		CellLimit:  conf.MonthCellLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The first load runs before serving so requests never see an empty
	// store; feed failures alone are not fatal.
	if err := worker.RunOnce(ctx); errors.Is(err, refresh.ErrSnapshot) {
		return fmt.Errorf("initial load: %w", err)
	}

	if flags.once {
		return exportOnce(flags, store, engine)
	}

	worker.Start(ctx)
	defer worker.Stop()

	srv := web.NewServer(conf, store, engine)
	return srv.StartServer(ctx, shutdownTimeout)
}

// exportOnce writes an ICS export of the requested range to stdout.
func exportOnce(flags flagConfig, store *snapshot.Store, engine *schedule.Engine) error {
	loc := engine.Location()
	from := caldate.StartOfDay(time.Now().In(loc))
	if flags.exportFrom != "" {
		t, err := caldate.ParseDate(flags.exportFrom, loc)
		if err != nil {
			return err
		}
		from = t
	}
	to := from.AddDate(0, 0, 27)
	if flags.exportTo != "" {
		t, err := caldate.ParseDate(flags.exportTo, loc)
		if err != nil {
			return err
		}
		to = t
	}

	snap, _ := store.Current()
	_, err := fmt.Fprint(os.Stdout, ics.Export(engine.Range(snap, from, to), ics.ExportOptions{
		Name:     "plancal",
		Location: loc,
	}))
	return err
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", envOr("PLANCAL_CONFIG", "/etc/plancal/config.yaml"), "Path to config file")
	flag.StringVar(&cfg.listen, "listen", os.Getenv("PLANCAL_LISTEN"), "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.logLevel, "log-level", envOr("PLANCAL_LOG_LEVEL", "info"), "debug, info, warn or error")
	flag.BoolVar(&cfg.once, "once", false, "Load once, print an ICS export to stdout and exit")
	flag.StringVar(&cfg.exportFrom, "from", "", "First day of the -once export (YYYY-MM-DD, default today)")
	flag.StringVar(&cfg.exportTo, "to", "", "Last day of the -once export (YYYY-MM-DD, default from+27)")

	flag.Parse()
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
