package cmd

import (
	"context"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/bizopsbank/feeder/feeder"
	"github.com/bizopsbank/feeder/internal"
	"github.com/bizopsbank/feeder/pkg/daemon"
	"github.com/bizopsbank/feeder/pkg/election"
	"github.com/bizopsbank/feeder/pkg/netcool"
)

const leaderKey = "feeder:monitor:leader"

func cmdFeed() *cli.Command {
	return &cli.Command{
		Name:      "feed",
		Action:    feed,
		Category:  "SERVICE",
		Usage:     "Start the directory-scanning intake service",
		ArgsUsage: "[SOURCE-DIRS]",
		Description: `
			Scans the configured source directories on every node of the cluster and
			uses a shared Redis map to make sure each incoming file is claimed by
			exactly one node.

			Examples:
			$ feeder feed --meta-addr localhost:6379/1 /data/reports/in
			$ FEEDER_SOURCE_DIRECTORIES=/a,/b feeder feed`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "source-dirs",
				Aliases: []string{"d"},
				Usage:   "comma- or semicolon-separated list of directories to scan",
				EnvVars: []string{"FEEDER_SOURCE_DIRECTORIES"},
			},
			&cli.IntFlag{
				Name:    "scan-interval",
				Usage:   "minutes between scan cycle starts",
				Value:   2,
				EnvVars: []string{"FEEDER_SCAN_INTERVAL_MINUTES"},
			},
			&cli.StringFlag{
				Name:    "map-name",
				Usage:   "logical name of the shared semaphore map",
				Value:   feeder.DefaultMapName,
				EnvVars: []string{"FEEDER_MAP_NAME"},
			},
			&cli.StringFlag{
				Name:    "meta-addr",
				Usage:   "address of the Redis metadata store",
				Value:   feeder.DefaultMetaAddr,
				EnvVars: []string{"FEEDER_META_ADDR"},
			},
			&cli.StringFlag{
				Name:    "netcool-url",
				Usage:   "endpoint for monitoring alerts (empty disables alerting)",
				EnvVars: []string{"FEEDER_NETCOOL_URL"},
			},
			&cli.IntFlag{
				Name:    "stale-hours",
				Usage:   "hours without a new report before raising an alert",
				Value:   24,
				EnvVars: []string{"FEEDER_STALE_THRESHOLD_HOURS"},
			},
			&cli.StringFlag{
				Name:    "conf",
				Usage:   "path to a YAML config file",
				EnvVars: []string{"FEEDER_CONF"},
			},
			&cli.StringFlag{
				Name:  "logdir",
				Usage: "path for the feeder log",
			},
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "log level: trace/debug/info/warn/error",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "background",
				Usage: "run in background",
			},
		},
	}
}

func feed(c *cli.Context) error {
	if shouldExit, err := handleBackgroundMode(c); err != nil {
		logger.Fatalf("Failed to start in background: %v", err)
	} else if shouldExit {
		return nil
	}

	setupLogging(c)

	conf, err := buildConfig(c)
	if err != nil {
		return err
	}

	store, err := feeder.NewRedisSemaphoreStore(conf.MetaAddr, conf.MapName, conf)
	if err != nil {
		return err
	}
	defer store.Close()

	clock := clockwork.NewRealClock()
	semaphore := feeder.NewSemaphoreManager(store)
	scheduler := feeder.NewScheduledScanner(conf, feeder.NewDirectoryScanner(), semaphore, feeder.LogProcessor{}, clock)

	alerter := netcool.NewClient(conf.NetcoolURL, conf.NetcoolTimeout)
	monitor := feeder.NewDirectoryMonitor(conf, alerter, clock)

	// The monitor only runs on the elected leader so the monitoring side sees
	// one alert per condition, not one per node.
	elector := election.NewRedisLeaderElector(store.Rdb(), leaderKey, 30*time.Second, 10*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := elector.Start(ctx,
		func(context.Context) { monitor.Start() },
		func() { monitor.Stop() },
	); err != nil {
		return err
	}

	scheduler.Start()
	logger.Infof("feeder is running (instance %s)", elector.InstanceID())

	shutdown := func() {
		scheduler.Stop()
		elector.Stop()
		monitor.Stop()
		store.Close()
	}

	// Last-resort teardown in case the signal path below is bypassed.
	defer shutdown()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Infof("received signal %s, shutting down", sig)
	return nil
}

// buildConfig layers defaults, the optional YAML file, environment variables
// and command-line flags, in that order of precedence (lowest first).
func buildConfig(c *cli.Context) (*feeder.Config, error) {
	conf := feeder.NewConfig()

	if c.IsSet("conf") {
		if err := conf.LoadFile(c.String("conf")); err != nil {
			return nil, err
		}
	}

	if c.IsSet("source-dirs") {
		conf.SourceDirs = feeder.SplitSourceDirs(c.String("source-dirs"))
	} else if c.Args().Present() {
		conf.SourceDirs = feeder.SplitSourceDirs(c.Args().First())
	}
	if c.IsSet("scan-interval") {
		conf.ScanInterval = time.Duration(c.Int("scan-interval")) * time.Minute
	}
	if c.IsSet("map-name") {
		conf.MapName = c.String("map-name")
	}
	if c.IsSet("meta-addr") {
		conf.MetaAddr = c.String("meta-addr")
	}
	if c.IsSet("netcool-url") {
		conf.NetcoolURL = c.String("netcool-url")
	}
	if c.IsSet("stale-hours") {
		conf.StaleThreshold = time.Duration(c.Int("stale-hours")) * time.Hour
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	logger.Infof("feeder configuration: directories %v, interval %s, map %q, meta %s",
		conf.SourceDirs, conf.ScanInterval, conf.MapName, conf.MetaAddr)
	return conf, nil
}

func setupLogging(c *cli.Context) {
	if logDir := c.String("logdir"); logDir != "" {
		internal.SetOutFile(path.Join(logDir, "feeder.log"))
	}

	switch c.String("loglevel") {
	case "trace":
		internal.SetLogLevel(logrus.TraceLevel)
	case "debug":
		internal.SetLogLevel(logrus.DebugLevel)
	case "info":
		internal.SetLogLevel(logrus.InfoLevel)
	case "warn":
		internal.SetLogLevel(logrus.WarnLevel)
	case "error":
		internal.SetLogLevel(logrus.ErrorLevel)
	default:
		internal.SetLogLevel(logrus.InfoLevel)
	}
}

// handleBackgroundMode forks into a daemon when --background is given. It
// returns true in the parent process, which should exit without starting the
// service.
func handleBackgroundMode(c *cli.Context) (bool, error) {
	if !c.Bool("background") {
		return false, nil
	}
	if daemon.WasReborn() {
		daemon.UnsetMark()
		return false, nil
	}

	pidFile := path.Join(os.TempDir(), "feeder.pid")
	var logFile string
	if logDir := c.String("logdir"); logDir != "" {
		logFile = path.Join(logDir, "feeder-daemon.log")
	}
	proc, err := daemon.Daemonize(pidFile, logFile, os.Args)
	if err != nil {
		return false, err
	}
	return proc != nil, nil
}
