package config

// Overrides carries command-line settings. Nil pointers and zero values
// leave the loaded configuration untouched.
type Overrides struct {
	ConfigPath string
	Debug      bool
	LogFile    string

	Materials *bool
	KeepUSDA  *bool
	BakeAO    *bool
	AOSamples int
	Scale     float64
	Animate   *bool

	ArchiveMode string
	Verbose     *bool
}

// applyOverrides applies command-line overrides to the config.
func applyOverrides(cfg *Config, o Overrides) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.LogFile != "" {
		cfg.Logging.LogFile = o.LogFile
	}
	if o.Materials != nil {
		cfg.Export.Materials = *o.Materials
	}
	if o.KeepUSDA != nil {
		cfg.Export.KeepUSDA = *o.KeepUSDA
	}
	if o.BakeAO != nil {
		cfg.Export.BakeAO = *o.BakeAO
	}
	if o.AOSamples > 0 {
		cfg.Export.AOSamples = o.AOSamples
	}
	if o.Scale > 0 {
		cfg.Export.Scale = o.Scale
	}
	if o.Animate != nil {
		cfg.Export.Animate = *o.Animate
	}
	if o.ArchiveMode != "" {
		cfg.Archive.Mode = o.ArchiveMode
	}
	if o.Verbose != nil {
		cfg.Archive.Verbose = *o.Verbose
	}
}
