package main

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chazu/formwork/internal/config"
	"github.com/chazu/formwork/pkg/engine"
	"github.com/chazu/formwork/pkg/kernel"
	"github.com/chazu/formwork/pkg/kernel/native"
	"github.com/chazu/formwork/pkg/kernel/sdfx"
	"github.com/chazu/formwork/pkg/tessellate"
)

// App runs the full pipeline: script -> design -> meshes.
type App struct {
	engine *engine.Engine
	kernel kernel.Kernel
	log    *zap.Logger
}

// MeshData is the JSON-serializable mesh format for previews.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error or diagnostic.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Part    string `json:"part,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`

	// Models holds the kernel meshes behind Meshes for export.
	Models []*kernel.Mesh `json:"-"`
}

// NewApp creates an App with the native kernel and no logging.
func NewApp() *App {
	return &App{
		engine: engine.NewEngine(),
		kernel: native.New(),
		log:    zap.NewNop(),
	}
}

// NewAppFromConfig creates an App using the configured kernel.
func NewAppFromConfig(cfg *config.Config, log *zap.Logger) (*App, error) {
	a := NewApp()
	if log != nil {
		a.log = log
	}
	switch cfg.Kernel.Name {
	case config.KernelNative:
	case config.KernelSdfx:
		a.kernel = sdfx.New(cfg.Kernel.MeshCells)
	default:
		return nil, fmt.Errorf("unknown kernel %q", cfg.Kernel.Name)
	}
	return a, nil
}

// Evaluate takes Lisp source and returns mesh data, errors and warnings.
// Eval errors stop the pipeline; geometry diagnostics only skip or trim
// the affected part.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the Lisp source into a design.
	d, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	a.log.Debug("evaluated design",
		zap.Int("parts", d.PartCount()),
		zap.Int("instances", d.InstanceCount()))

	// Step 2: Tessellate the design into triangle meshes.
	res, err := tessellate.Tessellate(d, a.kernel, tessellate.WithLogger(a.log.Named("tessellate")))
	if err != nil {
		a.log.Error("tessellate failed", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	for _, dg := range res.Diagnostics {
		data := EvalErrorData{Part: dg.Part, Code: dg.Code, Message: dg.Error()}
		if dg.Severity == kernel.SeverityError {
			result.Errors = append(result.Errors, data)
		} else {
			result.Warnings = append(result.Warnings, data)
		}
	}

	// Step 3: Convert kernel meshes to the preview format.
	result.Models = res.Meshes
	for _, m := range res.Meshes {
		result.Meshes = append(result.Meshes, meshData(m))
	}
	return result
}

func meshData(m *kernel.Mesh) MeshData {
	md := MeshData{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  vertexNormals(m),
		Indices:  m.Indices,
		PartName: m.Name,
	}
	for i, v := range m.Vertices {
		md.Vertices[i] = float32(v)
	}
	if len(m.Groups) > 0 {
		md.Color = hexColor(m.Groups[0].Material.Diffuse)
	}
	return md
}

// vertexNormals sums the area-weighted face normals around each vertex.
func vertexNormals(m *kernel.Mesh) []float32 {
	acc := make([]float64, len(m.Vertices))
	for t := range m.TriangleCount() {
		c := m.Triangle(t)
		n := c[1].Sub(c[0]).Cross(c[2].Sub(c[0]))
		for _, ix := range m.Indices[t*3 : t*3+3] {
			acc[ix*3] += n.X
			acc[ix*3+1] += n.Y
			acc[ix*3+2] += n.Z
		}
	}
	out := make([]float32, len(acc))
	for i := 0; i < len(acc); i += 3 {
		l := math.Sqrt(acc[i]*acc[i] + acc[i+1]*acc[i+1] + acc[i+2]*acc[i+2])
		if l == 0 {
			continue
		}
		out[i], out[i+1], out[i+2] = float32(acc[i]/l), float32(acc[i+1]/l), float32(acc[i+2]/l)
	}
	return out
}

func hexColor(c kernel.Color) string {
	ch := func(v float64) int {
		return int(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return fmt.Sprintf("#%02X%02X%02X", ch(c.R), ch(c.G), ch(c.B))
}
