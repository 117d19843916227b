package phaseopt

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"
)

// Run loads the JSON config at cfgPath, prepares parameters and samples,
// anneals until done or interrupted, and saves the last accepted parameters.
func Run(cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	frame, err := cfg.Frame.Build()
	if err != nil {
		return err
	}
	blur, err := cfg.Blur.Build()
	if err != nil {
		return err
	}

	seed := cfg.Optimizer.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	params, err := cfg.Surfaces.Build()
	if err != nil {
		return err
	}
	if cfg.ParamsIn != "" {
		if err := params.Load(cfg.ParamsIn); err != nil {
			return err
		}
		if params.N() != cfg.Surfaces.Count || params.Order != cfg.Surfaces.Order {
			DebugLog("Reshaping loaded params N=%d, P=%d to N=%d, P=%d", params.N(), params.Order, cfg.Surfaces.Count, cfg.Surfaces.Order)
			if err := params.Reshape(cfg.Surfaces.Count, cfg.Surfaces.Order); err != nil {
				return err
			}
		}
	}
	if cfg.Randomize {
		params.RandomizeAll(rng)
	}

	samples, err := cfg.Samples.Build(frame)
	if err != nil {
		return err
	}
	samples.RandomizeStartPoints(rng)
	samples.RandomizeInputDirections(rng)
	if cfg.Samples.Targets == "random" {
		samples.RandomizeOutputDirections(rng)
	} else if skipped := samples.ComputeOutputDirections(); skipped > 0 {
		fmt.Printf("[SAMPLES] %d of %d direction pairs have no target and are skipped\n", skipped, len(samples.Pairs))
	}

	if cfg.Samples.Targets == "law" {
		ideal := []TransmissiveSurface{&LawPlane{Name: "ideal", Frame: frame, Law: samples.Law, Transmission: cfg.Transmission}}
		if a, err := meanAlignment(ideal, samples, seed, Workers()); err == nil {
			fmt.Printf("[IDEAL] %s law element alignment: %.6f\n", samples.Law.Kind, a)
		}
	}

	if Debug {
		resetRayLogs()
	}
	ocfg := cfg.Optimizer.Build(cfg.Transmission, blur)
	ocfg.Seed = seed
	opt, err := NewOptimizer(ocfg, frame, samples)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	run, err := opt.Start(ctx, params)
	if err != nil {
		return err
	}
	for p := range run.Progress() {
		fmt.Printf("[PROGRESS] %.2f%% iter=%d T=%.4g fitness=%.6f\n",
			Real(p.Iteration)*100/Real(p.MaxIterations), p.Iteration, p.Temperature, p.Fitness)
	}
	res, err := run.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	DebugLog("Optimization: %d iterations, time: %s", res.Iteration, time.Since(start))
	fmt.Printf("[RESULT] fitness=%.6f after %d iterations\n", res.Fitness, res.Iteration)

	if Debug {
		raysStats()
	}
	if err := res.Params.Save(cfg.ParamsOut); err != nil {
		return err
	}
	DebugLog("Saved parameters: %s", cfg.ParamsOut)
	return nil
}
