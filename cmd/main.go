package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/royalcat/rgeopins/config"
	"github.com/royalcat/rgeopins/internal/telemetry"
	"github.com/royalcat/rgeopins/pinsaver"
	"github.com/royalcat/rgeopins/pinset"
	"github.com/royalcat/rgeopins/server"

	_ "net/http/pprof"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"
)

func main() {
	app := &cli.App{
		Name:        "rgeopins",
		Description: "Random pin placement inside drawn map regions",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve the rgeopins api",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:      "config",
						Aliases:   []string{"c"},
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:        "listen",
						DefaultText: "from config",
					},
					&cli.StringSliceFlag{
						Name:      "pins",
						Aliases:   []string{"p"},
						Usage:     "pin files to preload as pin sets",
						TakesFile: true,
					},
				},
				Action: serve,
			},
			{
				Name:    "sample",
				Aliases: []string{"s"},
				Usage:   "generates pins inside shapes from a GeoJSON or shape file",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:      "input",
						Aliases:   []string{"i"},
						Required:  true,
						TakesFile: true,
					},
					&cli.StringFlag{
						Name:        "out",
						Aliases:     []string{"o"},
						Usage:       "output file, .rgp and .zst write pin files, anything else GeoJSON",
						DefaultText: "stdout",
						TakesFile:   true,
					},
				}, samplingFlags()...),
				Action: sample,
			},
			{
				Name:  "snap",
				Usage: "rounds points to a degree grid",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name: "lat",
					},
					&cli.Float64Flag{
						Name: "lng",
					},
					&cli.Float64Flag{
						Name:  "step",
						Value: 0.001,
					},
					&cli.BoolFlag{
						Name:  "stdin",
						Usage: "read a JSON list of points from stdin",
					},
				},
				Action: snap,
			},
			{
				Name:  "bench",
				Usage: "repeatedly samples shapes and reports resource usage",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:      "input",
						Aliases:   []string{"i"},
						Required:  true,
						TakesFile: true,
					},
					&cli.IntFlag{
						Name:  "iterations",
						Value: 100,
					},
					&cli.DurationFlag{
						Name:  "interval",
						Value: 100 * time.Millisecond,
					},
				}, samplingFlags()...),
				Action: bench,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func samplingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "count",
			Value: config.DefaultPinCount,
		},
		&cli.Int64Flag{
			Name:        "seed",
			DefaultText: "current time",
		},
		&cli.Float64Flag{
			Name:  "spacing",
			Usage: "minimum distance between pins in meters, 0 disables spread sampling",
		},
		&cli.IntFlag{
			Name:        "attempts",
			DefaultText: "50",
		},
		&cli.Float64Flag{
			Name:  "snap",
			Usage: "grid step in degrees applied when pins are dragged, 0 disables snapping",
		},
		&cli.IntFlag{
			Name:        "threads",
			Aliases:     []string{"t"},
			DefaultText: "max",
		},
		&cli.StringFlag{
			Name:        "pprof.listen",
			DefaultText: "",
		},
		&cli.BoolFlag{
			Name:        "pprof.profile",
			DefaultText: "",
		},
	}
}

// startProfiling serves pprof and writes a cpu profile when requested, the returned func stops it.
func startProfiling(ctx *cli.Context) (func(), error) {
	log := slog.Default()

	if pprofListen := ctx.String("pprof.listen"); pprofListen != "" {
		go func() {
			log.Info("Starting pprof server")
			err := http.ListenAndServe(pprofListen, nil)
			if err != nil {
				log.Error("Error starting pprof server", "error", err)
			}
		}()
	}

	if !ctx.Bool("pprof.profile") {
		return func() {}, nil
	}

	f, err := os.OpenFile("profile.cpu.pprof", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("error creating pprof file: %w", err)
	}
	err = pprof.StartCPUProfile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error starting pprof: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func serve(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	if ctx.IsSet("listen") {
		cfg.Server.Listen = ctx.String("listen")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, err := telemetry.Setup(ctx.Context, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	defer client.Shutdown(context.Background())

	store := pinset.NewStore()
	for _, name := range ctx.StringSlice("pins") {
		file, err := pinsaver.LoadFromFile(name, slog.Default())
		if err != nil {
			return fmt.Errorf("failed to load pins from %s: %w", name, err)
		}
		id, set := store.Create(file.Metadata.Snap, file.Points)
		slog.Info("Pin set loaded", "file", name, "id", id.String(), "pins", set.Len())
	}

	runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(runCtx, cfg, store)
}
