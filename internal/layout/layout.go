// Package layout decides how many grid columns the viewer uses.
package layout

// Columns returns the column count for count visible slots. A focused view always uses one column.
func Columns(count int, focused bool) int {
	if focused {
		return 1
	}
	switch {
	case count <= 1:
		return 1
	case count <= 4:
		return 2
	case count <= 9:
		return 3
	default:
		return 4
	}
}
