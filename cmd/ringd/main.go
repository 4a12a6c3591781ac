package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/behrlich/ringd"
	"github.com/behrlich/ringd/internal/logging"
)

func main() {
	var (
		addr       = flag.String("addr", ":8000", "Address to listen on")
		staticRoot = flag.String("static-root", ".", "Filesystem root for file-backed routes")
		verbose    = flag.Bool("v", false, "Verbose output")
		depth      = flag.Uint("queue-depth", 0, "io_uring queue depth (0 = default)")
		workers    = flag.Int("job-workers", 0, "Job bridge worker count (0 = runtime.NumCPU())")
	)
	flag.Parse()
	if flag.NArg() > 0 {
		*addr = ":" + flag.Arg(0)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	metrics := ringd.NewMetrics()

	logger.Info("starting server", "addr", *addr, "static_root", *staticRoot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := ringd.Serve(ctx, ringd.Config{
		Addr:          *addr,
		StaticRoot:    *staticRoot,
		QueueDepth:    uint32(*depth),
		NumJobWorkers: *workers,
		Logger:        logger,
		Observer:      metrics,
	})
	if err != nil {
		logger.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Listening on %s\n", *addr)
	fmt.Printf("Static root: %s\n", *staticRoot)
	fmt.Printf("\nPress Ctrl+C to stop...\n")
	fmt.Printf("Send SIGUSR1 (kill -USR1 %d) to dump goroutine stacks\n", os.Getpid())

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			logger.Info("=== GOROUTINE STACK TRACE DUMP ===")
			buf := make([]byte, 1024*1024)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "\n=== FULL GOROUTINE STACK DUMP ===\n")
			fmt.Fprintf(os.Stderr, "%s\n", buf[:n])
			fmt.Fprintf(os.Stderr, "=== END STACK DUMP ===\n\n")

			filename := fmt.Sprintf("ringd-stacks-%d.txt", time.Now().Unix())
			if f, err := os.Create(filename); err == nil {
				fmt.Fprintf(f, "Goroutine stack dump at %s\n", time.Now().Format(time.RFC3339))
				fmt.Fprintf(f, "Process ID: %d\n\n", os.Getpid())
				f.Write(buf[:n])

				fmt.Fprintf(f, "\n\n=== GOROUTINE PROFILE ===\n")
				pprof.Lookup("goroutine").WriteTo(f, 2)

				f.Close()
				logger.Info("stack trace written to file", "file", filename)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down server", "error", err)
	} else {
		logger.Info("server stopped successfully")
	}

	snap := metrics.Snapshot()
	logger.Info("final metrics",
		"total_ops", snap.TotalOps,
		"total_bytes", snap.TotalBytes,
		"error_rate_pct", snap.ErrorRate)
}
