// Package config handles formwork configuration loading and management.
package config

// Config holds all formwork settings.
type Config struct {
	Kernel  KernelConfig  `yaml:"kernel"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// KernelConfig selects the geometry kernel for plates.
type KernelConfig struct {
	Name      string `yaml:"name"`       // "native" or "sdfx"
	MeshCells int    `yaml:"mesh_cells"` // marching cubes resolution for sdfx
}

// ExportConfig controls mesh output.
type ExportConfig struct {
	Dir       string `yaml:"dir"`
	Format    string `yaml:"format"`    // "obj", "stl" or "json"
	BaseName  string `yaml:"base_name"` // file name without extension
	Precision int    `yaml:"precision"` // OBJ coordinate digits, -1 for exact
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Kernel names.
const (
	KernelNative = "native"
	KernelSdfx   = "sdfx"
)

// Export formats.
const (
	FormatOBJ  = "obj"
	FormatSTL  = "stl"
	FormatJSON = "json"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Kernel: KernelConfig{
			Name:      KernelNative,
			MeshCells: 200,
		},
		Export: ExportConfig{
			Dir:       ".",
			Format:    FormatOBJ,
			BaseName:  "model",
			Precision: 3,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
