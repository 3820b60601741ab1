package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/formwork/pkg/kernel"
)

// Materials returns the distinct group materials of meshes in first-use
// order, keyed by name.
func Materials(meshes ...*kernel.Mesh) []kernel.Material {
	var out []kernel.Material
	seen := make(map[string]bool)
	for _, m := range meshes {
		if m == nil {
			continue
		}
		for _, g := range m.Groups {
			if seen[g.Material.Name] {
				continue
			}
			seen[g.Material.Name] = true
			out = append(out, g.Material)
		}
	}
	return out
}

// WriteMTL writes one newmtl block per distinct material of meshes.
// Colors are written with two decimals.
func WriteMTL(w io.Writer, meshes ...*kernel.Mesh) error {
	bw := bufio.NewWriter(w)
	for _, mat := range Materials(meshes...) {
		fmt.Fprintf(bw, "newmtl '%s'\n", mat.Name)
		writeColor(bw, "Kd", mat.Diffuse)
		writeColor(bw, "Ka", mat.Ambient)
		writeColor(bw, "Ks", mat.Specular)
		fmt.Fprintf(bw, "Ns %g\n", mat.Shininess)
		fmt.Fprintf(bw, "Ni %g\n", mat.Refraction)
		fmt.Fprintln(bw)
	}
	return bw.Flush()
}

func writeColor(w io.Writer, key string, c kernel.Color) {
	fmt.Fprintf(w, "%s %.2f %.2f %.2f\n", key, c.R, c.G, c.B)
}

// ReadMTL parses MTL text. When m is not nil, every group whose material
// name matches a parsed material gets that material.
func ReadMTL(r io.Reader, m *kernel.Mesh) ([]kernel.Material, error) {
	var mats []kernel.Material
	var cur *kernel.Material

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		cols := strings.Fields(sc.Text())
		if len(cols) == 0 {
			continue
		}
		if cols[0] == "newmtl" {
			mats = append(mats, kernel.Material{Name: unquote(cols[1:])})
			cur = &mats[len(mats)-1]
			continue
		}
		var err error
		switch cols[0] {
		case "Kd", "Ka", "Ks", "Ns", "Ni":
			if cur == nil {
				return nil, &ParseError{line, cols[0] + " before newmtl"}
			}
		}
		switch cols[0] {
		case "Kd":
			cur.Diffuse, err = parseColor(cols[1:])
		case "Ka":
			cur.Ambient, err = parseColor(cols[1:])
		case "Ks":
			cur.Specular, err = parseColor(cols[1:])
		case "Ns":
			cur.Shininess, err = parseScalar(cols[1:])
		case "Ni":
			cur.Refraction, err = parseScalar(cols[1:])
		}
		if err != nil {
			return nil, &ParseError{line, fmt.Sprintf("%s: %v", cols[0], err)}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mtl: %w", err)
	}

	if m != nil {
		byName := make(map[string]kernel.Material, len(mats))
		for _, mat := range mats {
			byName[mat.Name] = mat
		}
		for i := range m.Groups {
			if mat, ok := byName[m.Groups[i].Material.Name]; ok {
				m.Groups[i].Material = mat
			}
		}
	}
	return mats, nil
}

func parseColor(cols []string) (kernel.Color, error) {
	if len(cols) < 3 {
		return kernel.Color{}, fmt.Errorf("expected 3 channels, found %d", len(cols))
	}
	var ch [3]float64
	for i := range ch {
		f, err := strconv.ParseFloat(cols[i], 64)
		if err != nil {
			return kernel.Color{}, err
		}
		ch[i] = f
	}
	return kernel.Color{R: ch[0], G: ch[1], B: ch[2]}, nil
}

func parseScalar(cols []string) (float64, error) {
	if len(cols) < 1 {
		return 0, fmt.Errorf("missing value")
	}
	return strconv.ParseFloat(cols[0], 64)
}
