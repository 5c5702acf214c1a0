package mesh

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal + 3 vertices (12 float32) + attribute count
)

// le is the byte order of binary STL.
var le = binary.LittleEndian

// ReadSTL decodes a binary or ASCII STL stream. STL stores a triangle soup,
// so coincident corners are welded into shared vertices (see WeldWithin);
// component connectivity depends on this.
func ReadSTL(r io.Reader) (*Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("stl: read: %w", err)
	}
	var soup *Mesh
	if isBinarySTL(data) {
		soup, err = decodeBinarySTL(data)
	} else {
		soup, err = decodeASCIISTL(data)
	}
	if err != nil {
		return nil, err
	}
	return soup.WeldWithin(MergeTolerance), nil
}

// isBinarySTL reports whether data has the exact length implied by a
// binary STL header. ASCII files start with "solid", but so do many binary
// files, so the size check wins.
func isBinarySTL(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	n := le.Uint32(data[stlHeaderSize:])
	if uint64(len(data)) == uint64(stlHeaderSize+4)+uint64(n)*stlTriangleSize {
		return true
	}
	return !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid"))
}

func decodeBinarySTL(data []byte) (*Mesh, error) {
	n := int(le.Uint32(data[stlHeaderSize:]))
	body := data[stlHeaderSize+4:]
	if len(body) < n*stlTriangleSize {
		return nil, fmt.Errorf("stl: truncated binary file: %d triangles declared, %d bytes of data", n, len(body))
	}
	m := &Mesh{
		Vertices: make([]r3.Vec, 0, n*3),
		Faces:    make([]Face, 0, n),
	}
	for i := 0; i < n; i++ {
		tri := body[i*stlTriangleSize:]
		var f Face
		for v := 0; v < 3; v++ {
			const start = 3 * 4 // skip normal
			off := start + 12*v
			p := r3.Vec{
				X: float64(math.Float32frombits(le.Uint32(tri[off:]))),
				Y: float64(math.Float32frombits(le.Uint32(tri[off+4:]))),
				Z: float64(math.Float32frombits(le.Uint32(tri[off+8:]))),
			}
			f[v] = len(m.Vertices)
			m.Vertices = append(m.Vertices, p)
		}
		m.Faces = append(m.Faces, f)
	}
	return m, nil
}

func decodeASCIISTL(data []byte) (*Mesh, error) {
	m := &Mesh{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	var corners []r3.Vec
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("stl: line %d: vertex needs 3 coordinates", line)
			}
			var c [3]float64
			for k := 0; k < 3; k++ {
				f, err := strconv.ParseFloat(fields[k+1], 64)
				if err != nil {
					return nil, fmt.Errorf("stl: line %d: %w", line, err)
				}
				c[k] = f
			}
			corners = append(corners, r3.Vec{X: c[0], Y: c[1], Z: c[2]})
		case "endloop":
			if len(corners) != 3 {
				return nil, fmt.Errorf("stl: line %d: facet has %d vertices, want 3", line, len(corners))
			}
			base := len(m.Vertices)
			m.Vertices = append(m.Vertices, corners...)
			m.Faces = append(m.Faces, Face{base, base + 1, base + 2})
			corners = corners[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("stl: scan: %w", err)
	}
	if len(m.Faces) == 0 {
		return nil, errors.New("stl: no facets found")
	}
	return m, nil
}

// WriteSTL encodes m as binary STL with per-facet normals.
func WriteSTL(w io.Writer, m *Mesh) error {
	if err := m.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	var header [stlHeaderSize]byte
	copy(header[:], "binary STL written by anamorph")
	if _, err := bw.Write(header[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, le, uint32(len(m.Faces))); err != nil {
		return err
	}
	var buf [stlTriangleSize]byte
	for i := range m.Faces {
		t := m.Triangle(i)
		n := faceNormal(t)
		putVec(buf[0:], n)
		putVec(buf[12:], t[0])
		putVec(buf[24:], t[1])
		putVec(buf[36:], t[2])
		le.PutUint16(buf[48:], 0)
		if _, err := bw.Write(buf[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func putVec(b []byte, v r3.Vec) {
	le.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	le.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	le.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

// faceNormal returns the unit normal of t, or the zero vector for a
// degenerate triangle.
func faceNormal(t [3]r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// LoadSTL reads an STL file from disk.
func LoadSTL(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stl: %w", err)
	}
	defer f.Close()
	m, err := ReadSTL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// SaveSTL writes m to path as binary STL, creating parent directories.
func SaveSTL(path string, m *Mesh) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("stl: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stl: %w", err)
	}
	if err := WriteSTL(f, m); err != nil {
		f.Close()
		return fmt.Errorf("stl: write %s: %w", path, err)
	}
	return f.Close()
}
