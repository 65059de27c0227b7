package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/umputun/go-flags"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dumontcloud/dumont-qa/app/browser"
	"github.com/dumontcloud/dumont-qa/app/client"
	"github.com/dumontcloud/dumont-qa/app/config"
	"github.com/dumontcloud/dumont-qa/app/probe"
	"github.com/dumontcloud/dumont-qa/app/report"
	"github.com/dumontcloud/dumont-qa/app/runner"
	"github.com/dumontcloud/dumont-qa/app/snapshot"
	"github.com/dumontcloud/dumont-qa/app/store"
	"github.com/dumontcloud/dumont-qa/app/tunnel"
	"github.com/dumontcloud/dumont-qa/app/web"
)

var opts struct {
	Config   string `short:"f" long:"config" env:"QA_CONFIG" default:"dumont-qa.yml" description:"config file"`
	DBFile   string `long:"db" env:"QA_DB" default:"dumont-qa.db" description:"results database file"`
	KeepRuns int    `long:"keep" env:"QA_KEEP" default:"200" description:"recorded runs kept in the database, 0 disables cleanup"`
	HostName string `long:"host" env:"QA_HOSTNAME" description:"host name reported in results"`
	Dbg      bool   `long:"dbg" env:"QA_DEBUG" description:"debug mode"`

	Log struct {
		Enabled         bool   `long:"enabled" env:"ENABLED" description:"enable log to file"`
		Filename        string `long:"file" env:"FILE" default:"dumont-qa.log" description:"log file name"`
		MaxSize         int    `long:"max-size" env:"MAX_SIZE" default:"100" description:"max size of log file, MB"`
		MaxBackups      int    `long:"max-backups" env:"MAX_BACKUPS" default:"10" description:"max number of rotated log files"`
		MaxAge          int    `long:"max-age" env:"MAX_AGE" default:"30" description:"max age of rotated log files, days"`
		EnabledCompress bool   `long:"enabled-compress" env:"ENABLED_COMPRESS" description:"enable compression of rotated log files"`
	} `group:"log" namespace:"log" env-namespace:"QA_LOG"`

	SMTP struct {
		Host     string        `long:"host" env:"HOST" description:"SMTP host"`
		Port     int           `long:"port" env:"PORT" default:"587" description:"SMTP port"`
		Username string        `long:"username" env:"USERNAME" description:"SMTP user name"`
		Password string        `long:"password" env:"PASSWORD" description:"SMTP password"`
		TLS      bool          `long:"tls" env:"TLS" description:"enable SMTP TLS"`
		TimeOut  time.Duration `long:"timeout" env:"TIMEOUT" default:"10s" description:"SMTP connection timeout"`
	} `group:"smtp" namespace:"smtp" env-namespace:"QA_SMTP"`

	Slack struct {
		Token string `long:"token" env:"TOKEN" description:"slack bot token"`
	} `group:"slack" namespace:"slack" env-namespace:"QA_SLACK"`

	Tunnel struct {
		Enabled    bool   `long:"enabled" env:"ENABLED" description:"open ssh tunnel before the session"`
		Host       string `long:"host" env:"HOST" description:"ssh destination, user@host"`
		LocalPort  int    `long:"local-port" env:"LOCAL_PORT" default:"3000" description:"local side of the forward"`
		RemotePort int    `long:"remote-port" env:"REMOTE_PORT" default:"3000" description:"remote side of the forward"`
	} `group:"tunnel" namespace:"tunnel" env-namespace:"QA_TUNNEL"`

	ProbeCmd struct {
		Concurrency int `long:"concurrency" env:"QA_CONCURRENCY" default:"4" description:"parallel probes"`
	} `command:"probe" description:"run availability probes against the target"`

	SnapshotCmd struct {
		Out         string `short:"o" long:"out" env:"QA_SNAPSHOT_OUT" default:"snapshots" description:"screenshot output directory"`
		Concurrency int    `long:"concurrency" env:"QA_CONCURRENCY" default:"2" description:"parallel page captures"`
		Install     bool   `long:"install" description:"install chromium before capturing"`
	} `command:"snapshot" description:"capture page screenshots in a real browser"`

	WatchCmd struct {
		Reports string `long:"reports" env:"QA_REPORTS" default:"reports" description:"report output directory"`
	} `command:"watch" description:"run probe sessions on the configured schedule"`

	ReportCmd struct {
		RunID int64  `long:"run" description:"run id, the latest run when not set"`
		Kind  string `long:"kind" default:"probe" choice:"probe" choice:"snapshot" choice:"e2e" description:"run kind for the latest-run lookup"` //nolint:staticcheck // multiple choice tags
		Out   string `short:"o" long:"out" env:"QA_REPORTS" default:"reports" description:"report output directory"`
	} `command:"report" description:"write a markdown report for a recorded run"`

	ServeCmd struct {
		Address     string `long:"address" env:"QA_ADDRESS" default:":8080" description:"listen address"`
		AuthHash    string `long:"auth-hash" env:"QA_AUTH_HASH" description:"bcrypt hash of the viewer password, empty disables auth"`
		Screenshots string `long:"screenshots" env:"QA_SNAPSHOT_OUT" default:"snapshots" description:"screenshot directory to serve"`
	} `command:"serve" description:"serve the recorded results over http"`

	SchemaCmd struct {
	} `command:"schema" description:"print the config json schema"`
}

var revision = "unknown"

func main() {
	fmt.Printf("dumont-qa %s\n", revision)

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(2)
	}
	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel) // handle SIGQUIT and SIGTERM

	if err := run(ctx, parser.Active.Name); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}

func run(ctx context.Context, command string) error {
	if opts.Tunnel.Enabled && command != "report" && command != "serve" && command != "schema" {
		tun := &tunnel.Tunnel{LocalPort: opts.Tunnel.LocalPort, RemoteHost: opts.Tunnel.Host,
			RemotePort: opts.Tunnel.RemotePort}
		if err := tun.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := tun.Close(); err != nil {
				log.Printf("[WARN] %v", err)
			}
		}()
	}

	switch command {
	case "probe":
		return runProbe(ctx)
	case "snapshot":
		return runSnapshot(ctx)
	case "watch":
		return runWatch(ctx)
	case "report":
		return runReport(ctx)
	case "serve":
		return runServe(ctx)
	case "schema":
		return runSchema()
	}
	return fmt.Errorf("unknown command %q", command)
}

func runProbe(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(opts.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	prober := &probe.Prober{
		Client:      client.New(cfg.Target.BaseURL, cfg.Target.Token, cfg.Target.Timeout),
		Recorder:    st,
		BaseURL:     cfg.Target.BaseURL,
		Host:        makeHostName(),
		Conditions:  cfg.Conditions,
		Concurrency: opts.ProbeCmd.Concurrency,
		HTTPTimeout: cfg.Target.Timeout,
	}

	summary, err := prober.Run(ctx, cfg.Probes)
	if err != nil {
		return err
	}
	log.Printf("[INFO] probe session %d done, %d passed, %d failed, %d skipped",
		summary.RunID, summary.Passed, summary.Failed, summary.Skipped)
	cleanupRuns(ctx, st)
	if summary.HasFailures() {
		return fmt.Errorf("probe session %d had %d failed checks", summary.RunID, summary.Failed)
	}
	return nil
}

func runSnapshot(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(opts.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	session, err := browser.NewSession(browser.Options{
		Headless: cfg.Browser.IsHeadless(),
		SlowMo:   cfg.Browser.SlowMo,
		Timeout:  cfg.Browser.Timeout,
		Install:  opts.SnapshotCmd.Install,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	snap := &snapshot.Runner{
		Capturer:    session,
		Recorder:    st,
		BaseURL:     cfg.Target.BaseURL,
		OutDir:      opts.SnapshotCmd.Out,
		Host:        makeHostName(),
		Concurrency: opts.SnapshotCmd.Concurrency,
	}

	summary, err := snap.Run(ctx, cfg.Pages)
	if err != nil {
		return err
	}
	log.Printf("[INFO] snapshot session %d done, %d passed, %d failed",
		summary.RunID, summary.Passed, summary.Failed)
	cleanupRuns(ctx, st)
	if summary.Failed > 0 {
		return fmt.Errorf("snapshot session %d had %d failed captures", summary.RunID, summary.Failed)
	}
	return nil
}

func runWatch(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Watch.Schedule == "" {
		return fmt.Errorf("watch.schedule not set in %s", opts.Config)
	}

	st, err := store.NewSQLiteStore(opts.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	prober := &probe.Prober{
		Client:      client.New(cfg.Target.BaseURL, cfg.Target.Token, cfg.Target.Timeout),
		Recorder:    st,
		BaseURL:     cfg.Target.BaseURL,
		Host:        makeHostName(),
		Conditions:  cfg.Conditions,
		Concurrency: 4,
		HTTPTimeout: cfg.Target.Timeout,
	}

	watch := &runner.Runner{
		Prober:             prober,
		Probes:             cfg.Probes,
		Target:             cfg.Target.BaseURL,
		Schedule:           cfg.Watch.Schedule,
		Attempts:           cfg.Watch.Attempts,
		Reporter:           &report.Generator{Reader: st, OutDir: opts.WatchCmd.Reports},
		NotifyOnFailure:    cfg.Notify.OnFailure,
		NotifyOnCompletion: cfg.Notify.OnCompletion,
	}
	if sender := makeSender(cfg); sender != nil {
		watch.Notifier = sender
	}
	return watch.Do(ctx)
}

func runReport(ctx context.Context) error {
	st, err := store.NewSQLiteStore(opts.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	gen := &report.Generator{Reader: st, OutDir: opts.ReportCmd.Out}
	var file string
	if opts.ReportCmd.RunID > 0 {
		file, err = gen.Generate(ctx, opts.ReportCmd.RunID)
	} else {
		file, err = gen.GenerateLast(ctx, opts.ReportCmd.Kind)
	}
	if err != nil {
		return err
	}
	log.Printf("[INFO] report saved to %s", file)
	fmt.Println(file)
	return nil
}

func runServe(ctx context.Context) error {
	st, err := store.NewSQLiteStore(opts.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	srv := &web.Server{
		Store:          st,
		ScreenshotsDir: opts.ServeCmd.Screenshots,
		Version:        revision,
		PasswordHash:   opts.ServeCmd.AuthHash,
	}
	return srv.Run(ctx, opts.ServeCmd.Address)
}

func runSchema() error {
	schema, err := config.GenerateSchema()
	if err != nil {
		return err
	}
	data, err := schema.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// loadConfig reads the harness config, Load verifies it as part of parsing
func loadConfig() (*config.Config, error) {
	return config.Load(opts.Config)
}

// makeSender builds the report sender from the config destinations and the
// smtp/slack credentials. Returns nil when notifications are off.
func makeSender(cfg *config.Config) *report.Sender {
	if !cfg.Notify.OnFailure && !cfg.Notify.OnCompletion {
		return nil
	}
	return report.NewSender(cfg.Notify.Destinations,
		report.SMTPParams{
			Host:     opts.SMTP.Host,
			Port:     opts.SMTP.Port,
			TLS:      opts.SMTP.TLS,
			Username: opts.SMTP.Username,
			Password: opts.SMTP.Password,
			TimeOut:  opts.SMTP.TimeOut,
		},
		report.SlackParams{Token: opts.Slack.Token},
	)
}

// cleanupRuns trims old runs from the results database, failures are logged
// and never fail the session
func cleanupRuns(ctx context.Context, st *store.SQLiteStore) {
	if opts.KeepRuns <= 0 {
		return
	}
	if err := st.CleanupOldRuns(ctx, opts.KeepRuns); err != nil {
		log.Printf("[WARN] failed to cleanup old runs: %v", err)
	}
}

func makeHostName() string {
	if opts.HostName != "" {
		return opts.HostName
	}
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

func setupLogs() io.Writer {
	logOut := io.Writer(os.Stdout)
	if opts.Log.Enabled {
		logOut = &lumberjack.Logger{
			Filename:   opts.Log.Filename,
			MaxSize:    opts.Log.MaxSize,
			MaxBackups: opts.Log.MaxBackups,
			MaxAge:     opts.Log.MaxAge,
			Compress:   opts.Log.EnabledCompress,
		}
	}

	if opts.Dbg {
		log.Setup(log.Out(logOut), log.Debug, log.CallerFile, log.CallerFunc, log.Msec, log.LevelBraces)
		return logOut
	}
	log.Setup(log.Out(logOut), log.Msec, log.LevelBraces)
	return logOut
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			if sig == syscall.SIGQUIT { // catch SIGQUIT and print stack traces
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
				continue
			}
			cancel() // terminate on SIGTERM or SIGINT
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
