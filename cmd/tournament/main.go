// Tournament is a driver for the lock pool and tournament trees.
//
// The "run" subcommand starts a tournament and has every participant enter the
// critical section. The "ptest" subcommand exercises a single two-party lock.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quay/lockcore/internal/osyield"
	"github.com/quay/lockcore/pkg/poolstats"
	"github.com/quay/lockcore/pool"
)

var cleanup sync.WaitGroup

type commonConfig struct {
	Pool *pool.Pool
}

type subcmd func(context.Context, *commonConfig, []string) error

func main() {
	var exit int
	defer func() {
		if exit != 0 {
			os.Exit(exit)
		}
	}()
	ctx, done := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		done()
	}()

	var (
		cfg         commonConfig
		capacity    int
		osYield     bool
		verbose     bool
		metricsAddr string
		tel         telemetryConfig
	)
	fs := flag.NewFlagSet("main", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nSubcommands\n\n")
		fmt.Fprintln(out, "run")
		fmt.Fprintln(out, "\tstart a tournament and have every participant enter the critical section")
		fmt.Fprintln(out, "ptest")
		fmt.Fprintln(out, "\ttake turns on a single two-party lock")
		fmt.Fprintln(out)
	}
	fs.IntVar(&capacity, "capacity", pool.DefaultCapacity, "number of lock slots in the pool")
	fs.BoolVar(&osYield, "os-yield", false, "yield the OS thread while waiting instead of the goroutine")
	fs.BoolVar(&verbose, "v", false, "log at debug level")
	fs.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.BoolVar(&tel.Enabled, "otlp", false, "export traces, metrics, and logs over OTLP (configured by OTEL_EXPORTER_OTLP_* variables)")
	fs.StringVar(&tel.Protocol, "otlp-protocol", "grpc", "OTLP protocol: grpc or http")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	shutdown, err := tel.Setup(ctx, level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		sctx, sdone := context.WithTimeout(context.Background(), 10*time.Second)
		defer sdone()
		if err := shutdown(sctx); err != nil {
			log.Print(err)
		}
	}()

	opts := []pool.Option{pool.WithCapacity(capacity)}
	if osYield {
		opts = append(opts, pool.WithYield(osyield.Yield))
	}
	cfg.Pool = pool.New(opts...)

	if metricsAddr != "" {
		if err := serveMetrics(ctx, metricsAddr, cfg.Pool); err != nil {
			log.Fatal(err)
		}
	}

	var cmd subcmd
	switch n := fs.Arg(0); n {
	case "run":
		cmd = Run
	case "ptest":
		cmd = PTest
	case "":
		fs.Usage()
		os.Exit(99)
	default:
		fs.Usage()
		fmt.Fprintf(os.Stderr, "\nunknown subcommand %q\n", n)
		os.Exit(99)
	}

	var cmdErr error
	cmdctx, cmddone := context.WithCancel(ctx)
	go func() {
		defer cmddone()
		cmdErr = cmd(cmdctx, &cfg, fs.Args()[1:])
	}()

	select {
	case <-ctx.Done():
		log.Print(ctx.Err())
		exit = 1
	case <-cmdctx.Done():
		if cmdErr != nil {
			log.Print(cmdErr)
			exit = 2
		}
	}
	done()
	cleanup.Wait()
}

// ServeMetrics serves the pool's statistics in the Prometheus exposition
// format until the Context is canceled.
func serveMetrics(ctx context.Context, addr string, p *pool.Pool) error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(poolstats.NewCollector(p, "main")); err != nil {
		return err
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	cleanup.Add(1)
	go func() {
		defer cleanup.Done()
		slog.InfoContext(ctx, "serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "metrics server failed", "reason", err)
		}
	}()
	cleanup.Add(1)
	go func() {
		defer cleanup.Done()
		<-ctx.Done()
		sctx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		srv.Shutdown(sctx)
	}()
	return nil
}
