package phaseopt

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

type FrameCfg struct {
	Origin r3.Vec `json:"origin"`
	Axis   r3.Vec `json:"axis"`         // defaults to +Z
	Up     r3.Vec `json:"up,omitempty"` // hint for the V direction, defaults to +Y
}

type LawCfg struct {
	Kind     string `json:"kind"`               // identity, rotation, shift, telescope
	Param    Real   `json:"param,omitempty"`    // shift amount or telescope factor
	AngleDeg Real   `json:"angleDeg,omitempty"` // rotation angle in degrees (friendlier than radians)
}

type SurfacesCfg struct {
	Count            int  `json:"count"`
	Order            int  `json:"order"`
	CoefficientScale Real `json:"coefficientScale,omitempty"`
	SpacingMin       Real `json:"spacingMin,omitempty"`
	SpacingMax       Real `json:"spacingMax,omitempty"`
}

type SamplesCfg struct {
	StartPoints    int    `json:"startPoints"`
	DirectionPairs int    `json:"directionPairs"`
	Radius         Real   `json:"radius"`
	ConeAngleDeg   Real   `json:"coneAngleDeg"`
	Targets        string `json:"targets,omitempty"` // "law" (default) or "random"
	Law            LawCfg `json:"law"`
}

type OptimizerCfg struct {
	MaxIterations      int    `json:"maxIterations"`
	InitialTemperature Real   `json:"initialTemperature,omitempty"`
	ProgressIntervalMs int    `json:"progressIntervalMs,omitempty"`
	Seed               uint64 `json:"seed,omitempty"`
	Workers            int    `json:"workers,omitempty"`
}

type BlurCfg struct {
	Enabled  bool `json:"enabled"`
	Lambda   Real `json:"lambda"`
	Aperture Real `json:"aperture"`
}

type Config struct {
	Frame        FrameCfg     `json:"frame"`
	Surfaces     SurfacesCfg  `json:"surfaces"`
	Samples      SamplesCfg   `json:"samples"`
	Optimizer    OptimizerCfg `json:"optimizer"`
	Transmission Real         `json:"transmission,omitempty"`
	Blur         BlurCfg      `json:"blur,omitempty"`
	ParamsIn     string       `json:"paramsIn,omitempty"`  // start from a saved parameter file
	ParamsOut    string       `json:"paramsOut,omitempty"` // where the result is saved
	Randomize    bool         `json:"randomize,omitempty"` // randomize parameters before optimizing
}

func (fc FrameCfg) Build() (Frame, error) {
	axis, up := fc.Axis, fc.Up
	if axis == (r3.Vec{}) {
		axis = r3.Vec{Z: 1}
	}
	if up == (r3.Vec{}) {
		up = r3.Vec{Y: 1}
	}
	return NewFrame(fc.Origin, axis, up)
}

func (lc LawCfg) Build(frame Frame) (DirectionLaw, error) {
	kind, err := ParseLawKind(lc.Kind)
	if err != nil {
		return DirectionLaw{}, err
	}
	param := lc.Param
	switch kind {
	case LawRotation:
		if lc.AngleDeg != 0 {
			param = deg2rad(lc.AngleDeg)
		}
	case LawTelescope:
		if param == 0 {
			param = 1
		}
	}
	return NewDirectionLaw(kind, param, frame)
}

func (sc SurfacesCfg) Build() (*SurfaceParams, error) {
	p, err := NewSurfaceParams(sc.Count, sc.Order)
	if err != nil {
		return nil, err
	}
	if sc.CoefficientScale > 0 {
		p.CoefficientScale = sc.CoefficientScale
	}
	if sc.SpacingMin > 0 {
		p.SpacingMin = sc.SpacingMin
	}
	if sc.SpacingMax > 0 {
		p.SpacingMax = sc.SpacingMax
	}
	if p.SpacingMax < p.SpacingMin {
		return nil, fmt.Errorf("spacing range is empty: [%g, %g)", p.SpacingMin, p.SpacingMax)
	}
	return p, nil
}

func (sc SamplesCfg) Build(frame Frame) (*RaySampleSet, error) {
	law, err := sc.Law.Build(frame)
	if err != nil {
		return nil, err
	}
	return NewRaySampleSet(frame, sc.StartPoints, sc.DirectionPairs, sc.Radius, deg2rad(sc.ConeAngleDeg), law)
}

func (bc BlurCfg) Build() (Blur, error) {
	b := Blur(bc)
	if b.Enabled && (!(b.Lambda > 0) || !(b.Aperture > 0)) {
		return Blur{}, fmt.Errorf("blur needs lambda > 0 and aperture > 0, got %g and %g", b.Lambda, b.Aperture)
	}
	return b, nil
}

func (oc OptimizerCfg) Build(transmission Real, blur Blur) OptimizerConfig {
	return OptimizerConfig{
		MaxIterations:      oc.MaxIterations,
		InitialTemperature: oc.InitialTemperature,
		ProgressInterval:   time.Duration(oc.ProgressIntervalMs) * time.Millisecond,
		Seed:               oc.Seed,
		Workers:            oc.Workers,
		Transmission:       transmission,
		Blur:               blur,
	}
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	// Defaults / validation
	if cfg.Surfaces.Count <= 0 {
		cfg.Surfaces.Count = NumSurfaces
	}
	if cfg.Surfaces.Order <= 0 {
		cfg.Surfaces.Order = PolynomialOrder
	}
	if cfg.Samples.StartPoints <= 0 {
		cfg.Samples.StartPoints = StartPoints
	}
	if cfg.Samples.DirectionPairs <= 0 {
		cfg.Samples.DirectionPairs = DirectionPairs
	}
	if cfg.Samples.Radius <= 0 {
		cfg.Samples.Radius = DiscRadius
	}
	if cfg.Samples.ConeAngleDeg <= 0 {
		cfg.Samples.ConeAngleDeg = ConeAngleDeg
	}
	switch t := strings.ToLower(cfg.Samples.Targets); t {
	case "":
		cfg.Samples.Targets = "law"
	case "law", "random":
		cfg.Samples.Targets = t
	default:
		return nil, fmt.Errorf("samples.targets must be \"law\" or \"random\", got %q", cfg.Samples.Targets)
	}
	if cfg.Optimizer.MaxIterations <= 0 {
		cfg.Optimizer.MaxIterations = MaxIterations
	}
	if cfg.Optimizer.InitialTemperature <= 0 {
		cfg.Optimizer.InitialTemperature = InitialTemperature
	}
	if cfg.Optimizer.ProgressIntervalMs <= 0 {
		cfg.Optimizer.ProgressIntervalMs = int(ProgressInterval / time.Millisecond)
	}
	if cfg.Transmission <= 0 {
		cfg.Transmission = Transmission
	}
	if cfg.Transmission > 1 || math.IsNaN(cfg.Transmission) {
		return nil, fmt.Errorf("transmission must be in (0, 1], got %g", cfg.Transmission)
	}
	if cfg.ParamsOut == "" {
		cfg.ParamsOut = ParamsOut
	}
	if cfg.ParamsIn == "" {
		cfg.Randomize = true
	}
	DebugLog("Loaded config from %s: N=%d, P=%d, K=%d, M=%d, maxIter=%d, targets=%s", path, cfg.Surfaces.Count, cfg.Surfaces.Order, cfg.Samples.StartPoints, cfg.Samples.DirectionPairs, cfg.Optimizer.MaxIterations, cfg.Samples.Targets)
	return &cfg, nil
}
