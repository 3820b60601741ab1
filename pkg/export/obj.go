// Package export writes and reads meshes as Wavefront OBJ/MTL text and
// binary STL.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/formwork/pkg/kernel"
)

// OBJOptions controls how vertex coordinates are formatted.
type OBJOptions struct {
	// Format is a strconv float format byte ('e', 'f' or 'g').
	Format byte
	// Precision is the number of digits; -1 writes the shortest
	// representation that parses back to the same float64.
	Precision int
}

// DefaultOBJOptions writes coordinates in exponent form with three
// fraction digits.
func DefaultOBJOptions() OBJOptions {
	return OBJOptions{Format: 'e', Precision: 3}
}

// ExactOBJOptions writes coordinates that read back bit for bit.
func ExactOBJOptions() OBJOptions {
	return OBJOptions{Format: 'g', Precision: -1}
}

// WriteOBJ writes m as OBJ text referencing the material library mtlName.
// Each group becomes a g/usemtl block; face indices are 1-based.
func WriteOBJ(w io.Writer, m *kernel.Mesh, mtlName string, opts OBJOptions) error {
	if opts.Format == 0 {
		opts.Format = 'g'
	}
	bw := bufio.NewWriter(w)
	if mtlName != "" {
		fmt.Fprintf(bw, "mtllib %s\n", mtlName)
	}

	buf := make([]byte, 0, 64)
	for i := range m.VertexCount() {
		buf = append(buf[:0], 'v')
		for _, c := range m.Vertices[i*3 : i*3+3] {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, c, opts.Format, opts.Precision, 64)
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}

	for _, g := range m.Groups {
		fmt.Fprintf(bw, "g '%s'\n", g.Name)
		fmt.Fprintf(bw, "usemtl '%s'\n", g.Material.Name)
		for ix := g.IndexOffset; ix < g.IndexOffset+g.IndexCount; ix += 3 {
			fmt.Fprintf(bw, "f %d %d %d\n", m.Indices[ix]+1, m.Indices[ix+1]+1, m.Indices[ix+2]+1)
		}
	}
	return bw.Flush()
}

// ParseError reports a malformed line in an OBJ or MTL file.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ReadOBJ parses OBJ text into a mesh. Faces with more than three corners
// are split into triangles pairwise from both ends. Faces before the first
// g statement land in an unnamed group. Each group's material carries only
// the usemtl name; ReadMTL fills in the rest.
func ReadOBJ(r io.Reader) (*kernel.Mesh, error) {
	m := &kernel.Mesh{}
	usemtl := ""
	var grp *kernel.Group

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		cols := strings.Fields(sc.Text())
		if len(cols) == 0 {
			continue
		}
		switch cols[0] {
		case "v":
			if len(cols) < 4 {
				return nil, &ParseError{line, fmt.Sprintf("vertex needs 3 coordinates, found %d", len(cols)-1)}
			}
			for _, c := range cols[1:4] {
				f, err := strconv.ParseFloat(c, 64)
				if err != nil {
					return nil, &ParseError{line, fmt.Sprintf("bad coordinate %q", c)}
				}
				m.Vertices = append(m.Vertices, f)
			}
		case "g":
			m.Groups = append(m.Groups, kernel.Group{
				Name:        unquote(cols[1:]),
				IndexOffset: len(m.Indices),
			})
			grp = &m.Groups[len(m.Groups)-1]
		case "usemtl":
			usemtl = unquote(cols[1:])
		case "f":
			if len(cols) < 4 {
				return nil, &ParseError{line, fmt.Sprintf("face needs at least 3 corners, found %d", len(cols)-1)}
			}
			if grp == nil {
				m.Groups = append(m.Groups, kernel.Group{IndexOffset: len(m.Indices)})
				grp = &m.Groups[len(m.Groups)-1]
			}
			grp.Material.Name = usemtl
			corners := make([]uint32, len(cols)-1)
			for i, c := range cols[1:] {
				ix, err := faceIndex(c, m.VertexCount())
				if err != nil {
					return nil, &ParseError{line, err.Error()}
				}
				corners[i] = ix
			}
			n := len(m.Indices)
			m.Indices = appendFace(m.Indices, corners)
			grp.IndexCount += len(m.Indices) - n
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read obj: %w", err)
	}
	return m, nil
}

// appendFace triangulates an n-gon by pairing corners from both ends
// towards the middle: quads (bl, br, tr, tl) become (tl, bl, br) and
// (br, tr, tl); an odd corner left in the middle closes with one more
// triangle.
func appendFace(idx []uint32, c []uint32) []uint32 {
	n := len(c)
	if n == 3 {
		return append(idx, c[0], c[1], c[2])
	}
	// 1-based positions mirror the face line columns.
	at := func(i int) uint32 { return c[i-1] }
	nh := n / 2
	for i := 1; i < nh; i++ {
		bl, br := at(i), at(i+1)
		tr, tl := at(n-i), at(n-i+1)
		idx = append(idx, tl, bl, br, br, tr, tl)
	}
	if n%2 != 0 {
		idx = append(idx, at(nh), at(nh+1), at(nh+2))
	}
	return idx
}

// faceIndex resolves a face corner such as "7", "7/2/3" or "-1" to a
// 0-based vertex index.
func faceIndex(s string, count int) (uint32, error) {
	v, _, _ := strings.Cut(s, "/")
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", s)
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += count
	default:
		return 0, fmt.Errorf("face index 0 is not valid")
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("face index %s out of range (%d vertices)", v, count)
	}
	return uint32(i), nil
}

// unquote joins the remaining columns and strips the single quotes the
// writer puts around names.
func unquote(cols []string) string {
	s := strings.Join(cols, " ")
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1]
	}
	return s
}
