package framework

// DasDennis returns the structured reference directions on the unit simplex
// in nObj dimensions: every point whose coordinates are multiples of
// 1/partitions and sum to one. There are C(partitions+nObj-1, nObj-1) of
// them. It returns nil when partitions or nObj is not positive.
func DasDennis(nObj, partitions int) [][]float64 {
	if nObj <= 0 || partitions <= 0 {
		return nil
	}
	var dirs [][]float64
	ref := make([]int, nObj)
	var fill func(dim, left int)
	fill = func(dim, left int) {
		if dim == nObj-1 {
			ref[dim] = left
			dir := make([]float64, nObj)
			for i, v := range ref {
				dir[i] = float64(v) / float64(partitions)
			}
			dirs = append(dirs, dir)
			return
		}
		for v := 0; v <= left; v++ {
			ref[dim] = v
			fill(dim+1, left-v)
		}
	}
	fill(0, partitions)
	return dirs
}
