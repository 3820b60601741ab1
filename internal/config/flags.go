package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config alone.
type Flags struct {
	Config string
	Debug  bool
	Kernel string
	Out    string
	Format string
}

// RegisterFlags defines the formwork flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.Kernel, "kernel", "", "Plate kernel: native or sdfx")
	fs.StringVar(&f.Out, "out", "", "Output directory")
	fs.StringVar(&f.Format, "format", "", "Output format: obj, stl or json")
	return f
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Kernel != "" {
		cfg.Kernel.Name = f.Kernel
	}
	if f.Out != "" {
		cfg.Export.Dir = f.Out
	}
	if f.Format != "" {
		cfg.Export.Format = f.Format
	}
}
