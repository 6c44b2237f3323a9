// Command blazepool exercises the scheduler with the workloads it is built
// for and optionally serves its statistics over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/GoBlaze/blazepool"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath = flag.String("config", "", "YAML config file")
		threads    = flag.Int("threads", 0, "worker threads, submitter included (0 = auto)")
		size       = flag.Int("size", 1000, "iterations per parallel-for")
		trials     = flag.Int("trials", 100, "parallel-for trials")
		nested     = flag.Int("nested", 8, "width of the nested parallel-for")
		httpAddr   = flag.String("http", "", "serve /stats and /parkinglot on this address")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg := blazepool.DefaultConfig()
	if *configPath != "" {
		loaded, err := blazepool.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "blazepool: %v\n", err)
			os.Exit(2)
		}
		cfg = *loaded
	}
	if *threads != 0 {
		cfg.NumThreads = *threads
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.WarnLevel
	}
	if *verbose {
		level = logrus.DebugLevel
	}
	// Workload results are reported at Info.
	cfg.Logger = blazepool.NewLog(max(level, logrus.InfoLevel))
	log := cfg.Logger

	sched, err := blazepool.New(cfg)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Warnf("start: %v", err)
	}
	defer sched.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &workloads{sched: sched, log: log}
	if err := w.run(ctx, *size, *trials, *nested); err != nil {
		log.Errorf("workload failed: %v", err)
		os.Exit(1)
	}
	fmt.Print(sched.Stats().String())

	if *httpAddr == "" {
		return
	}
	if err := serveStats(ctx, *httpAddr, sched, log); err != nil {
		log.Fatalf("stats server: %v", err)
	}
}
