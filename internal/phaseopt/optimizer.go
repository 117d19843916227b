package phaseopt

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("optimizer is already running")
	errNilParams      = errors.New("optimizer needs initial surface params")
)

type RunState int32

const (
	Idle RunState = iota
	Running
	Cancelling
	Done
)

var runStateNames = [...]string{"idle", "running", "cancelling", "done"}

func (s RunState) String() string {
	if s >= 0 && int(s) < len(runStateNames) {
		return runStateNames[s]
	}
	return fmt.Sprintf("RunState(%d)", int32(s))
}

// OptimizerConfig is fixed for the duration of a run.
type OptimizerConfig struct {
	MaxIterations      int
	InitialTemperature Real
	ProgressInterval   time.Duration
	Seed               uint64 // 0 picks a random seed
	Workers            int    // 0 means Workers()
	Transmission       Real
	Blur               Blur
}

// DefaultOptimizerConfig returns a reasonable default configuration.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		MaxIterations:      MaxIterations,
		InitialTemperature: InitialTemperature,
		ProgressInterval:   ProgressInterval,
		Transmission:       Transmission,
	}
}

// State is the annealing walk at one point in time.
type State struct {
	Params      *SurfaceParams
	Fitness     Real
	Iteration   int
	Temperature Real
}

// Progress is a snapshot published while a run is in flight. Params is a
// private copy owned by the receiver.
type Progress struct {
	Iteration     int
	MaxIterations int
	Temperature   Real
	Fitness       Real
	Params        *SurfaceParams
}

// Optimizer anneals surface parameters against a fixed sample set.
type Optimizer struct {
	cfg     OptimizerConfig
	frame   Frame
	samples *RaySampleSet
	rng     *rand.Rand
	state   atomic.Int32
}

func NewOptimizer(cfg OptimizerConfig, frame Frame, samples *RaySampleSet) (*Optimizer, error) {
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be ≥ 1, got %d", cfg.MaxIterations)
	}
	if !(cfg.InitialTemperature >= 0) || !isFinite(cfg.InitialTemperature) {
		return nil, fmt.Errorf("initial temperature must be finite and ≥ 0, got %v", cfg.InitialTemperature)
	}
	if samples == nil {
		return nil, errors.New("optimizer needs a ray sample set")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = Workers()
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = ProgressInterval
	}
	var rng *rand.Rand
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	} else {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}
	o := &Optimizer{cfg: cfg, frame: frame, samples: samples, rng: rng}
	DebugLog("Created optimizer: maxIter=%d, T0=%.4g, workers=%d, seed=%d", cfg.MaxIterations, cfg.InitialTemperature, cfg.Workers, cfg.Seed)
	return o, nil
}

func (o *Optimizer) State() RunState { return RunState(o.state.Load()) }

func (o *Optimizer) begin() error {
	if o.state.CompareAndSwap(int32(Idle), int32(Running)) || o.state.CompareAndSwap(int32(Done), int32(Running)) {
		return nil
	}
	return fmt.Errorf("%w (state %s)", ErrAlreadyRunning, o.State())
}

// Temperature follows T0·(1 − (iter+1)/max)^4, reaching 0 on the last iteration.
func (o *Optimizer) Temperature(iter int) Real {
	f := 1 - Real(iter+1)/Real(o.cfg.MaxIterations)
	if f < 0 {
		f = 0
	}
	return o.cfg.InitialTemperature * f * f * f * f
}

// Evaluate scores params on the optimizer's sample set. It draws from the
// optimizer's RNG and must not be called while a run is in flight.
func (o *Optimizer) Evaluate(params *SurfaceParams) (Real, error) {
	seq := params.BuildTransmissionSequence(o.frame, o.cfg.Transmission, o.cfg.Blur)
	return meanAlignment(seq, o.samples, o.rng.Uint64(), o.cfg.Workers)
}

// accept always takes an improvement and otherwise takes the candidate with
// probability T·(1 + Δ/current). The rule is only meaningful for current > 0.
func accept(current, candidate, temp Real, rng *rand.Rand) bool {
	if candidate > current {
		return true
	}
	if current <= 0 {
		DebugLogOnce("acceptance probability is ill-defined for current fitness %.6g <= 0", current)
	}
	p := temp * (1 + (candidate-current)/current)
	return rng.Float64() < p
}

// Optimise runs the annealing loop in the calling goroutine. It returns the
// last accepted state; on cancellation that state comes with ctx.Err().
func (o *Optimizer) Optimise(ctx context.Context, initial *SurfaceParams) (State, error) {
	if initial == nil {
		return State{}, errNilParams
	}
	if err := o.begin(); err != nil {
		return State{}, err
	}
	st, err := o.optimise(ctx, initial, nil)
	o.state.Store(int32(Done))
	return st, err
}

func (o *Optimizer) optimise(ctx context.Context, initial *SurfaceParams, publish func(Progress)) (State, error) {
	st := State{Params: initial.Clone()}
	fit, err := o.Evaluate(st.Params)
	if err != nil {
		return st, fmt.Errorf("initial fitness: %w", err)
	}
	st.Fitness = fit
	st.Temperature = o.cfg.InitialTemperature
	DebugLog("Optimise: start fitness %.6f", fit)

	var last time.Time
	emit := func(force bool) {
		if publish == nil {
			return
		}
		now := time.Now()
		if !force && now.Sub(last) < o.cfg.ProgressInterval {
			return
		}
		last = now
		publish(Progress{
			Iteration:     st.Iteration,
			MaxIterations: o.cfg.MaxIterations,
			Temperature:   st.Temperature,
			Fitness:       st.Fitness,
			Params:        st.Params.Clone(),
		})
	}
	emit(true)

	for st.Iteration < o.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			o.state.CompareAndSwap(int32(Running), int32(Cancelling))
			DebugLog("Optimise: cancelled at iteration %d, fitness %.6f", st.Iteration, st.Fitness)
			emit(true)
			return st, err
		}
		cand := st.Params.Neighbor(o.rng)
		cf, err := o.Evaluate(cand)
		if err != nil {
			return st, fmt.Errorf("iteration %d: %w", st.Iteration, err)
		}
		st.Temperature = o.Temperature(st.Iteration)
		accepted := accept(st.Fitness, cf, st.Temperature, o.rng)
		if accepted {
			st.Params, st.Fitness = cand, cf
		}
		st.Iteration++
		emit(accepted)
	}
	emit(true)
	DebugLog("Optimise: done after %d iterations, fitness %.6f", st.Iteration, st.Fitness)
	return st, nil
}

// Job is the handle of an optimization running in the background.
type Job struct {
	cancel   context.CancelFunc
	progress chan Progress
	done     chan struct{}
	result   State
	err      error
}

// Start launches the annealing loop in its own goroutine.
func (o *Optimizer) Start(ctx context.Context, initial *SurfaceParams) (*Job, error) {
	if initial == nil {
		return nil, errNilParams
	}
	if err := o.begin(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	r := &Job{
		cancel:   cancel,
		progress: make(chan Progress, 1),
		done:     make(chan struct{}),
	}
	go func() {
		r.result, r.err = o.optimise(ctx, initial, r.publish)
		cancel()
		o.state.Store(int32(Done))
		close(r.progress)
		close(r.done)
	}()
	return r, nil
}

// publish replaces whatever snapshot is still pending, so the consumer
// always sees the most recent one.
func (r *Job) publish(p Progress) {
	for {
		select {
		case r.progress <- p:
			return
		default:
		}
		select {
		case <-r.progress:
		default:
		}
	}
}

// Progress yields snapshots until the run ends, then is closed.
func (r *Job) Progress() <-chan Progress { return r.progress }

// Done is closed once the result is available.
func (r *Job) Done() <-chan struct{} { return r.done }

// Cancel asks the loop to stop at the next iteration boundary. It is a
// no-op once the job has finished, so it never touches a later run.
func (r *Job) Cancel() {
	select {
	case <-r.done:
		return
	default:
	}
	r.cancel()
}

// Wait blocks until the loop has returned.
func (r *Job) Wait() (State, error) {
	<-r.done
	return r.result, r.err
}
