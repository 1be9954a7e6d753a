package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/gofold/geometry"
)

// NetgenMesh holds the arrays of a Netgen neutral volume mesh with indices
// converted to zero based.
type NetgenMesh struct {
	Nodes      []r3.Vec
	Tets       [][4]int
	Faces      [][3]int
	TetLabels  []int // Subdomain of every tetrahedron
	FaceLabels []int // Boundary condition number of every surface triangle
}

// ReadNetgen reads a Netgen neutral file:
//
//	nodeCount
//	x y z                  (nodeCount lines)
//	tetCount
//	label v1 v2 v3 v4      (tetCount lines, 1 based)
//	faceCount
//	label v1 v2 v3         (faceCount lines, 1 based)
//
// The x and y coordinates are swapped on read, and tetrahedra are stored as
// v1 v2 v4 v3, which keeps them right handed after the swap.
func ReadNetgen(r io.Reader) (nm *NetgenMesh, err error) {
	var (
		reader     = &lineReader{reader: bufio.NewReader(r)}
		nn, ne, nf int
	)
	nm = &NetgenMesh{}
	if nn, err = reader.readCount("node"); err != nil {
		return nil, err
	}
	nm.Nodes = make([]r3.Vec, nn)
	for i := 0; i < nn; i++ {
		var x, y, z float64
		if err = reader.scan(3, "node", i, &x, &y, &z); err != nil {
			return nil, err
		}
		nm.Nodes[i] = r3.Vec{X: y, Y: x, Z: z}
	}
	if ne, err = reader.readCount("tetrahedron"); err != nil {
		return nil, err
	}
	nm.Tets, nm.TetLabels = make([][4]int, ne), make([]int, ne)
	for k := 0; k < ne; k++ {
		var v [4]int
		if err = reader.scan(5, "tetrahedron", k, &nm.TetLabels[k], &v[0], &v[1], &v[2], &v[3]); err != nil {
			return nil, err
		}
		nm.Tets[k] = [4]int{v[0] - 1, v[1] - 1, v[3] - 1, v[2] - 1}
	}
	if nf, err = reader.readCount("face"); err != nil {
		return nil, err
	}
	nm.Faces, nm.FaceLabels = make([][3]int, nf), make([]int, nf)
	for k := 0; k < nf; k++ {
		var v [3]int
		if err = reader.scan(4, "face", k, &nm.FaceLabels[k], &v[0], &v[1], &v[2]); err != nil {
			return nil, err
		}
		nm.Faces[k] = [3]int{v[0] - 1, v[1] - 1, v[2] - 1}
	}
	return
}

// ReadNetgenFile reads and validates the Netgen mesh at path
func ReadNetgenFile(path string) (m *geometry.Mesh, err error) {
	var (
		file *os.File
		nm   *NetgenMesh
	)
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	if nm, err = ReadNetgen(file); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return nm.Mesh()
}

// Mesh validates the arrays and builds a geometry.Mesh from them
func (nm *NetgenMesh) Mesh() (*geometry.Mesh, error) {
	return geometry.NewMesh(nm.Nodes, nm.Tets, nm.Faces)
}

// ReadLabels reads whitespace separated integer region labels, one per element
func ReadLabels(r io.Reader) (labels []int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		var label int
		if _, err = fmt.Sscanf(scanner.Text(), "%d", &label); err != nil {
			return nil, fmt.Errorf("label %d: %w", len(labels), err)
		}
		labels = append(labels, label)
	}
	err = scanner.Err()
	return
}

// ReadLabelsFile reads the region label file at path
func ReadLabelsFile(path string) (labels []int, err error) {
	var (
		file *os.File
	)
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	return ReadLabels(file)
}

type lineReader struct {
	reader *bufio.Reader
	line   int
}

// next returns the next non blank line
func (lr *lineReader) next() (line string, err error) {
	for {
		line, err = lr.reader.ReadString('\n')
		if err != nil && !(err == io.EOF && len(line) > 0) {
			if err == io.EOF {
				err = fmt.Errorf("early end of file after line %d", lr.line)
			}
			return
		}
		err = nil
		lr.line++
		if line = strings.TrimSpace(line); len(line) > 0 {
			return
		}
	}
}

func (lr *lineReader) readCount(what string) (n int, err error) {
	var (
		line string
	)
	if line, err = lr.next(); err != nil {
		return
	}
	if _, err = fmt.Sscanf(line, "%d", &n); err != nil || n < 0 {
		err = fmt.Errorf("line %d: unable to read %s count from [%s]", lr.line, what, line)
	}
	return
}

func (lr *lineReader) scan(want int, what string, index int, args ...interface{}) (err error) {
	var (
		line string
		n    int
	)
	if line, err = lr.next(); err != nil {
		return
	}
	if n, err = fmt.Sscan(line, args...); err != nil || n != want {
		err = fmt.Errorf("line %d: unable to read %s %d from [%s]", lr.line, what, index, line)
	}
	return
}
