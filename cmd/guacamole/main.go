package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"guacamole/internal/config"
	"guacamole/internal/diag"
	"guacamole/internal/game"
	"guacamole/internal/generation"
	"guacamole/internal/gpu"
	"guacamole/internal/gpu/glcompute"
	"guacamole/internal/gpu/kernel"
	"guacamole/internal/gpu/soft"
	"guacamole/internal/gpu/vkprobe"
	"guacamole/internal/terrain"

	"github.com/pkg/profile"
	"github.com/xlab/closer"
)

func main() {
	var (
		configPath  = flag.String("config", "", "pipeline config file (YAML)")
		backend     = flag.String("backend", "", "compute backend: soft or gl (overrides config)")
		frames      = flag.Int("frames", 600, "frames to run, 0 for no limit")
		speed       = flag.Float64("speed", 8, "viewer speed in world units per second")
		fps         = flag.Int("fps", 60, "frame cap, 0 for none")
		diagAddr    = flag.String("diag", "", "serve diagnostics on this address, e.g. 127.0.0.1:7070")
		cpuProfile  = flag.String("cpuprofile", "", "write a CPU profile into this directory")
		probeVulkan = flag.Bool("probe-vulkan", false, "list Vulkan devices with a compute queue and exit")
		dumpSPIRV   = flag.String("dump-spirv", "", "compile the meshing kernel to SPIR-V, write it here and exit")
		verbose     = flag.Bool("v", false, "log every generated chunk")
	)
	flag.Parse()
	defer closer.Close()

	if *probeVulkan {
		adapters, err := vkprobe.Probe()
		if err != nil {
			log.Fatalf("probe: %v", err)
		}
		for _, a := range adapters {
			log.Printf("vulkan: %s", a)
		}
		return
	}
	if *dumpSPIRV != "" {
		writeSPIRV(*dumpSPIRV)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			panic(err)
		}
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	config.SetStreamRange(cfg.StreamRange)
	config.SetFPSLimit(*fps)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	generation.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *cpuProfile != "" {
		p := profile.Start(profile.CPUProfile, profile.ProfilePath(*cpuProfile), profile.NoShutdownHook)
		closer.Bind(p.Stop)
	}

	dev, err := newDevice(cfg)
	if err != nil {
		panic(err)
	}

	session, err := game.NewSession(cfg, dev, generation.ExitOnFault)
	if err != nil {
		panic(err)
	}
	session.Speed = float32(*speed)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	closer.Bind(func() {
		cancel()
		<-loopDone
		if err := session.Cleanup(); err != nil {
			log.Printf("pipeline: %v", err)
		}
		logSummary(session.Report())
		_ = dev.Close()
	})

	if *diagAddr != "" {
		srv := diag.NewServer(session.Report, 500*time.Millisecond, log.Default())
		go func() {
			if err := srv.ListenAndServe(ctx, *diagAddr); err != nil {
				log.Printf("diag: %v", err)
			}
		}()
	}

	log.Printf("guacamole: backend=%s edge=%d range=%d capacity=%d pack_workers=%d",
		cfg.Backend, cfg.CellEdge, cfg.StreamRange, cfg.StoreCapacity, cfg.PackWorkers)

	app := game.NewApp(session)
	app.MaxFrames = *frames
	err = app.Run(ctx)
	close(loopDone)
	if err != nil {
		closer.Fatalln("guacamole:", err)
	}
}

func newDevice(cfg config.Pipeline) (gpu.Device, error) {
	switch cfg.Backend {
	case config.BackendGL:
		return glcompute.New(cfg.Terrain)
	default:
		return soft.New(terrain.NewDensity(cfg.Terrain)), nil
	}
}

func writeSPIRV(path string) {
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("dump-spirv: %v", err)
	}
	n, err := kernel.WriteMeshSPIRV(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatalf("dump-spirv: %v", err)
	}
	log.Printf("dump-spirv: wrote %d bytes to %s", n, path)
}

func logSummary(r diag.Report) {
	p := r.Pipeline
	log.Printf("frames=%d resident=%d/%d stages=%v", r.Frame, r.Resident, r.Capacity, r.Stages)
	log.Printf("triangulated=%d (mean %v) packed=%d (mean %v) vertices=%d",
		p.ChunksTriangulated, p.MeanTriangulation(), p.ChunksPacked, p.MeanPack(), p.VerticesPacked)
}
