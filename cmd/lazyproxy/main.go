// Command lazyproxy is a lazy-start reverse proxy for the Minecraft
// Java Edition protocol: it forwards to a backend when reachable, and
// otherwise serves status/login itself while a start command boots one.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seiftnesse/mc-lazyproxy/internal/config"
	"github.com/seiftnesse/mc-lazyproxy/internal/logger"
	"github.com/seiftnesse/mc-lazyproxy/internal/proxy"
	"github.com/seiftnesse/mc-lazyproxy/internal/stats"
	"github.com/seiftnesse/mc-lazyproxy/internal/supervisor"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) != 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <listen address> <forward address> <start command>\n", args[0])
		return 1
	}

	cfg, err := config.Parse(args[1], args[2], args[3])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log := logger.New(logger.INFO, os.Stdout, "lazyproxy")
	st := stats.New()
	sup := supervisor.New(cfg.StartCommand, log)

	handler := proxy.NewHandler(cfg.ForwardAddr, sup, log, st)
	server, err := proxy.Listen(cfg.ListenAddr, handler, log)
	if err != nil {
		log.Error("listen on %s: %v", cfg.ListenAddr, err)
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		sup.Close()
		server.Close()
	}()

	if err := server.Serve(); err != nil {
		log.Error("accept loop: %v", err)
		return 1
	}

	return 0
}
