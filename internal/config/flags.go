package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagSubsteps   = flag.Int("substeps", 0, "Solver substep count")
	flagIterations = flag.Int("iterations", 0, "Constraint iteration count")
	flagFrames     = flag.Int("frames", 0, "Number of frames to simulate")
	flagDelta      = flag.Float64("delta", 0, "Fixed frame delta time in seconds")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSubsteps > 0 {
		cfg.Solver.NumSubsteps = *flagSubsteps
	}
	if *flagIterations > 0 {
		cfg.Solver.NumIterations = *flagIterations
	}
	if *flagFrames > 0 {
		cfg.Demo.Frames = *flagFrames
	}
	if *flagDelta > 0 {
		cfg.Demo.DeltaTime = float32(*flagDelta)
	}
}
