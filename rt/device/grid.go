package device

import "fmt"

// Grid is a workgroup count per dimension.
type Grid struct {
	X, Y, Z uint32
}

func (g Grid) Groups() uint64 {
	return uint64(g.X) * uint64(g.Y) * uint64(g.Z)
}

// Invocations is the total number of kernel invocations the grid launches.
func (g Grid) Invocations(workgroupSize uint32) uint64 {
	return g.Groups() * uint64(workgroupSize)
}

// GridFor sizes a grid so that at least items invocations run. The grid is
// one-dimensional while it fits maxPerDim and folds into Y beyond that; the
// kernel linearizes the invocation id as x + y*num_workgroups.x*workgroupSize.
func GridFor(items, workgroupSize, maxPerDim uint32) (Grid, error) {
	if workgroupSize == 0 {
		return Grid{}, fmt.Errorf("device: workgroup size must be non-zero")
	}
	if maxPerDim == 0 {
		maxPerDim = 65535
	}
	if items == 0 {
		return Grid{X: 1, Y: 1, Z: 1}, nil
	}

	groups := (items + workgroupSize - 1) / workgroupSize
	if groups <= maxPerDim {
		return Grid{X: groups, Y: 1, Z: 1}, nil
	}

	y := (groups + maxPerDim - 1) / maxPerDim
	if y > maxPerDim {
		return Grid{}, fmt.Errorf("device: %d items exceed a %dx%d grid of %d-wide workgroups", items, maxPerDim, maxPerDim, workgroupSize)
	}
	return Grid{X: maxPerDim, Y: y, Z: 1}, nil
}
