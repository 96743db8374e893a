// dockerdns is an authoritative DNS server that answers address queries for
// a configured set of domains from a relational lookup table, with a hosts
// file fast path and alias chasing.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/semihalev/zlog/v2"

	"github.com/opelnic/dockerdns/config"
	"github.com/opelnic/dockerdns/middleware"
	"github.com/opelnic/dockerdns/middleware/accesslist"
	"github.com/opelnic/dockerdns/middleware/accesslog"
	"github.com/opelnic/dockerdns/middleware/metrics"
	"github.com/opelnic/dockerdns/middleware/ratelimit"
	"github.com/opelnic/dockerdns/middleware/recovery"
	"github.com/opelnic/dockerdns/middleware/resolver"
	"github.com/opelnic/dockerdns/server"
)

const version = "1.0.0"

var (
	flagcfgpath  = flag.String("config", "dockerdns.toml", "location of the config file, if config file not found, a config will generate")
	flagprintver = flag.Bool("v", false, "show version information")

	cfg *config.Config
)

func init() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Example:")
		fmt.Fprintf(os.Stderr, "%s -config=dockerdns.toml\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "")
	}
}

// register builds the chain, order matters: infrastructure first, the
// resolution engine last.
func register() {
	middleware.Register("recovery", func(cfg *config.Config) middleware.Handler { return recovery.New(cfg) })
	middleware.Register("metrics", func(cfg *config.Config) middleware.Handler { return metrics.New(cfg) })
	middleware.Register("accesslog", func(cfg *config.Config) middleware.Handler { return accesslog.New(cfg) })
	middleware.Register("accesslist", func(cfg *config.Config) middleware.Handler { return accesslist.New(cfg) })
	middleware.Register("ratelimit", func(cfg *config.Config) middleware.Handler { return ratelimit.New(cfg) })
	middleware.Register("resolver", func(cfg *config.Config) middleware.Handler { return resolver.New(cfg) })
}

func setup() {
	var err error

	logger := zlog.NewStructured()
	logger.SetWriter(zlog.StdoutTerminal())
	zlog.SetDefault(logger)

	if cfg, err = config.Load(*flagcfgpath, version); err != nil {
		zlog.Error("Config loading failed", "error", err.Error())
		os.Exit(1)
	}

	logger.SetLevel(logLevel(cfg.LogLevel))

	register()

	if err := middleware.Setup(cfg); err != nil {
		zlog.Error("Middleware setup failed", "error", err.Error())
		os.Exit(1)
	}
}

func logLevel(level string) zlog.Level {
	switch level {
	case "debug":
		return zlog.LevelDebug
	case "warn":
		return zlog.LevelWarn
	case "error":
		return zlog.LevelError
	default:
		return zlog.LevelInfo
	}
}

func run() {
	srv := server.New(cfg)
	srv.Run()
}

func main() {
	flag.Parse()

	if *flagprintver {
		println("dockerdns v" + version)
		os.Exit(0)
	}

	zlog.Info("Starting dockerdns...", "version", version)

	setup()
	run()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	<-c

	zlog.Info("Stopping dockerdns...")

	if h, ok := middleware.Get("resolver").(*resolver.DNSHandler); ok {
		h.Stop()
	}
}
