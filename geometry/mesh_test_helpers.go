package geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Test helpers for building small closed meshes without a mesh file.

// NewSingleTetMesh returns the right handed unit corner tetrahedron with its
// four outward oriented faces.
func NewSingleTetMesh() *Mesh {
	m, err := NewMesh(
		[]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}},
		[][4]int{{0, 1, 2, 3}},
		[][3]int{{0, 2, 1}, {0, 1, 3}, {0, 3, 2}, {1, 2, 3}},
	)
	if err != nil {
		panic(err)
	}
	return m
}

// NewBoxMesh returns a structured nx*ny*nz grid of cubes spanning [lo, hi],
// each cube split into six right handed tetrahedra around its main diagonal,
// with the boundary triangulated consistently and oriented outward.
func NewBoxMesh(nx, ny, nz int, lo, hi r3.Vec) *Mesh {
	var (
		n       = [3]int{nx, ny, nz}
		id      = func(c [3]int) int { return c[0] + (nx+1)*(c[1]+(ny+1)*c[2]) }
		nodes   = make([]r3.Vec, (nx+1)*(ny+1)*(nz+1))
		tets    [][4]int
		faces   [][3]int
		perms   = [6][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
		spacing = r3.Vec{X: (hi.X - lo.X) / float64(nx), Y: (hi.Y - lo.Y) / float64(ny), Z: (hi.Z - lo.Z) / float64(nz)}
	)
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				nodes[id([3]int{i, j, k})] = r3.Vec{
					X: lo.X + float64(i)*spacing.X,
					Y: lo.Y + float64(j)*spacing.Y,
					Z: lo.Z + float64(k)*spacing.Z,
				}
			}
		}
	}
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				base := [3]int{i, j, k}
				for _, p := range perms {
					c1 := base
					c1[p[0]]++
					c2 := c1
					c2[p[1]]++
					c3 := [3]int{i + 1, j + 1, k + 1}
					tet := [4]int{id(base), id(c1), id(c2), id(c3)}
					if TetVolume(EdgeMatrix(nodes, tet)) < 0 {
						tet[2], tet[3] = tet[3], tet[2]
					}
					tets = append(tets, tet)
				}
			}
		}
	}
	for a := 0; a < 3; a++ {
		b, c := (a+1)%3, (a+2)%3
		for side := 0; side < 2; side++ {
			var outward r3.Vec
			switch a {
			case 0:
				outward.X = float64(2*side - 1)
			case 1:
				outward.Y = float64(2*side - 1)
			case 2:
				outward.Z = float64(2*side - 1)
			}
			for u := 0; u < n[b]; u++ {
				for w := 0; w < n[c]; w++ {
					var c00 [3]int
					c00[a], c00[b], c00[c] = side*n[a], u, w
					c10, c01, c11 := c00, c00, c00
					c10[b]++
					c01[c]++
					c11[b]++
					c11[c]++
					for _, tri := range [2][3]int{{id(c00), id(c10), id(c11)}, {id(c00), id(c11), id(c01)}} {
						p0 := nodes[tri[0]]
						nrm := r3.Cross(r3.Sub(nodes[tri[1]], p0), r3.Sub(nodes[tri[2]], p0))
						if r3.Dot(nrm, outward) < 0 {
							tri[1], tri[2] = tri[2], tri[1]
						}
						faces = append(faces, tri)
					}
				}
			}
		}
	}
	m, err := NewMesh(nodes, tets, faces)
	if err != nil {
		panic(err)
	}
	return m
}
