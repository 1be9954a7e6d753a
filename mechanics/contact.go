package mechanics

// MidPlane is a one sided penalty that keeps surface nodes from crossing the
// plane y = Y into the half space of the opposite hemisphere.
type MidPlane struct {
	Y         float64 // Plane position, mpy
	Thickness float64 // Cortical thickness hc scaling the penalty
	Length    float64 // Mean edge length a
	Stiffness float64 // Bulk modulus K
}

// Apply penalizes every surface node that started more than half an edge
// length away from the plane on one side and is now on the other by
// subtracting (Y - y)·a²·K/hc from its y force. It returns the number of
// penalized nodes.
func (mp MidPlane) Apply(st *State, surfaceToFull []int) (count int) {
	var (
		scale = mp.Length * mp.Length * mp.Stiffness / mp.Thickness
		half  = 0.5 * mp.Length
	)
	for _, i := range surfaceToFull {
		var (
			y0 = st.Undeformed[i].Y
			y  = st.Positions[i].Y
		)
		if (y0 < mp.Y-half && y > mp.Y) || (y0 > mp.Y+half && y < mp.Y) {
			st.Forces[i].Y -= (mp.Y - y) * scale
			count++
		}
	}
	return
}
