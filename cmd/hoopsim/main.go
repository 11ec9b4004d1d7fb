// Command hoopsim plays a scripted AR session against a shot server, or an
// in-process controller with -local, and logs the resulting scene.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/hoops/internal/config"
	"github.com/zeusync/hoops/internal/core/events/bus"
	"github.com/zeusync/hoops/internal/core/hoops"
	"github.com/zeusync/hoops/internal/core/observability/log"
	"github.com/zeusync/hoops/internal/gateway"
	"github.com/zeusync/hoops/internal/script"
	"github.com/zeusync/hoops/sdk/go/client"
)

const defaultScript = `
name: default
steps:
  - plane: floor
  - tap:
      position: {x: 0, y: -1.2, z: -2.5}
      forward: {x: 0, y: 0, z: -1}
  - viewer:
      position: {x: 0, y: 0, z: 0}
      forward: {x: 0, y: 0.3, z: -0.95}
  - press: true
  - wait: 400ms
  - release: true
  - wait: 200ms
  - press: true
  - wait: 150ms
  - release: true
`

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file, used by -local")
	scriptPath := flag.String("script", "", "Path to a YAML script (built-in demo when empty)")
	local := flag.Bool("local", false, "Run against an in-process controller instead of a server")
	transport := flag.String("transport", string(client.TransportWebSocket), "Transport: websocket|quic")
	addr := flag.String("addr", "ws://127.0.0.1:8080/ws", "Server URL (websocket) or host:port (quic)")
	insecure := flag.Bool("insecure", true, "Accept self-signed QUIC certificates")
	settle := flag.Duration("settle", 300*time.Millisecond, "Time to wait for the last scene requests")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading config:", err)
		os.Exit(1)
	}
	s, err := loadScript(*scriptPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading script:", err)
		os.Exit(1)
	}

	logger := log.New(cfg.LogLevel())
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scene := gateway.NewScene(logger)
	if *local {
		err = runLocal(ctx, cfg, s, scene, logger)
	} else {
		err = runRemote(ctx, client.Config{
			Transport:          client.Transport(*transport),
			Addr:               *addr,
			ConnectTimeout:     10 * time.Second,
			WriteTimeout:       cfg.Server.WriteTimeout,
			InsecureSkipVerify: *insecure,
			Logger:             logger,
		}, s, scene, *settle, logger)
	}
	if err != nil {
		logger.Error("Simulation failed", log.Error(err))
		os.Exit(1)
	}

	report(scene.Snapshot(), logger)
}

func loadScript(path string) (script.Script, error) {
	if path == "" {
		return script.Parse(strings.NewReader(defaultScript))
	}
	return script.Load(path)
}

func runLocal(ctx context.Context, cfg config.Config, s script.Script, scene *gateway.Scene, logger log.Log) error {
	const session = "local"

	b := bus.New()
	if _, err := gateway.Bind(b, session, scene); err != nil {
		return err
	}
	driver := script.NewLocal(session, cfg.Controller(), b, hoops.WithLogger(logger))
	if err := driver.Start(ctx); err != nil {
		return err
	}
	defer driver.Close()

	return script.Run(ctx, s, driver, logger)
}

func runRemote(ctx context.Context, cfg client.Config, s script.Script, scene *gateway.Scene, settle time.Duration, logger log.Log) error {
	c, err := client.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	g.Go(func() error { return c.Serve(serveCtx, scene) })
	g.Go(func() error {
		defer stopServe()
		if err := script.Run(gctx, s, c, logger); err != nil {
			return err
		}
		t := time.NewTimer(settle)
		defer t.Stop()
		select {
		case <-t.C:
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

func report(snap gateway.SceneSnapshot, logger log.Log) {
	logger.Info("Scene",
		log.Bool("hoop_placed", snap.HoopPlaced),
		log.Stringer("hoop", snap.Hoop),
		log.Bool("indicator_visible", snap.IndicatorVisible),
		log.Int("balls_spawned", snap.BallsSpawned),
		log.Int("balls_removed", snap.BallsRemoved),
		log.Int("balls_live", len(snap.Balls)))
	for _, ball := range snap.Balls {
		logger.Info("Ball",
			log.String("ball_id", ball.ID),
			log.Stringer("origin", ball.Origin),
			log.Stringer("impulse", ball.Impulse))
	}
}
