// Package main implements matrixd, the matrix multiplication server.
//
// Each TCP connection carries one request: the server generates two random
// square matrices of the requested size, multiplies them with a fixed pool
// of workers using the requested partitioning strategy, and replies with a
// status code and, optionally, the product.
//
// Configuration comes from, in increasing priority: built-in defaults, the
// YAML file named by MATRIXD_CONFIG, MATRIXD_* environment variables (see
// package config), and the positional arguments.
//
// Example usage:
//
//	# port 8080, 4 workers per request
//	./matrixd 8080 4
//
//	# same, through the environment, with the admin endpoint on :9090
//	MATRIXD_ADDR=:8080 MATRIXD_WORKERS=4 MATRIXD_ADMIN_ADDR=:9090 ./matrixd
//
//	# then, from another shell
//	./matrixctl calc --size 3 --strategy cyclic-row --print
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dreamware/matrixd/internal/config"
	"github.com/dreamware/matrixd/internal/server"
)

// logFatal is a variable to allow mocking log.Fatal in tests.
var logFatal = log.Fatalf

// shutdownTimeout bounds how long in-flight requests may take to finish
// after a shutdown signal.
const shutdownTimeout = 30 * time.Second

const usage = "usage: matrixd [port [workers]]"

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Getenv)
	if err != nil {
		logFatal("matrixd: %v\n%s", err, usage)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		logFatal("matrixd: %v", err)
	}
}

// loadConfig resolves the configuration from the environment and the
// positional arguments <port> and <workers>, both optional.
func loadConfig(args []string, env func(string) string) (config.Config, error) {
	if len(args) > 2 {
		return config.Config{}, fmt.Errorf("too many arguments: %q", args)
	}
	cfg, err := config.LoadFrom(env("MATRIXD_CONFIG"), env)
	if err != nil {
		return config.Config{}, err
	}

	if len(args) > 0 {
		port, err := strconv.Atoi(args[0])
		if err != nil || port < 0 || port > 65535 {
			return config.Config{}, fmt.Errorf("port %q: %w", args[0], config.ErrInvalid)
		}
		cfg.Addr = ":" + args[0]
	}
	if len(args) > 1 {
		workers, err := strconv.Atoi(args[1])
		if err != nil {
			return config.Config{}, fmt.Errorf("workers %q: %w", args[1], config.ErrInvalid)
		}
		cfg.Workers = workers
	}
	return cfg, cfg.Validate()
}

// run serves until ctx is cancelled, then shuts down gracefully. ready, if
// set, is called with the bound address once the listener is up.
func run(ctx context.Context, cfg config.Config, ready func(net.Addr)) error {
	srv, err := server.New(cfg)
	if err != nil {
		return err
	}
	l, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = srv.NewAdminServer(cfg.AdminAddr)
		go func() {
			log.Printf("admin listening on %s", cfg.AdminAddr)
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("admin: %v", err)
			}
		}()
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(l) }()
	if ready != nil {
		ready(l.Addr())
	}

	select {
	case <-ctx.Done():
		log.Printf("matrixd shutting down")
	case err := <-errc:
		if admin != nil {
			admin.Close()
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			log.Printf("admin shutdown error: %v", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, server.ErrServerClosed) {
		return err
	}
	log.Println("matrixd stopped")
	return nil
}
