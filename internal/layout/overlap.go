package layout

import "sort"

// Interval is one timed unit of a single day in row coordinates.
type Interval struct {
	ID       string
	IsLesson bool
	StartRow int
	EndRow   int // exclusive
}

// Placement is the horizontal slot assigned to an Interval.
type Placement struct {
	Column       int `json:"column"`
	TotalColumns int `json:"total_columns"`
}

// Overlaps reports true intersection of half-open intervals. Touching
// intervals (a.EndRow == b.StartRow) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.StartRow < b.EndRow && a.EndRow > b.StartRow
}

// AssignColumns places each interval in a column so that overlapping
// intervals never share one. Work is done per maximal overlap cluster:
// members are ordered lessons first, then by start row (end row and id
// break remaining ties) and each takes the lowest free column. Every member
// of a cluster reports the cluster's column count as TotalColumns.
//
// The result is index-aligned with items and independent of their order.
// Empty or inverted intervals are treated as one row tall.
func AssignColumns(items []Interval) []Placement {
	out := make([]Placement, len(items))
	if len(items) == 0 {
		return out
	}

	norm := make([]Interval, len(items))
	for i, it := range items {
		if it.EndRow <= it.StartRow {
			it.EndRow = it.StartRow + 1
		}
		norm[i] = it
	}

	byStart := make([]int, len(norm))
	for i := range byStart {
		byStart[i] = i
	}
	sort.SliceStable(byStart, func(a, b int) bool {
		return startLess(norm[byStart[a]], norm[byStart[b]])
	})

	var cluster []int
	clusterEnd := 0
	for _, idx := range byStart {
		it := norm[idx]
		if len(cluster) > 0 && it.StartRow >= clusterEnd {
			placeCluster(norm, cluster, out)
			cluster = cluster[:0]
		}
		if len(cluster) == 0 || it.EndRow > clusterEnd {
			clusterEnd = it.EndRow
		}
		cluster = append(cluster, idx)
	}
	placeCluster(norm, cluster, out)
	return out
}

func placeCluster(items []Interval, cluster []int, out []Placement) {
	if len(cluster) == 0 {
		return
	}
	order := append([]int(nil), cluster...)
	sort.SliceStable(order, func(a, b int) bool {
		x, y := items[order[a]], items[order[b]]
		if x.IsLesson != y.IsLesson {
			return x.IsLesson
		}
		return startLess(x, y)
	})

	columns := make(map[int][]int) // column -> member indices
	total := 0
	for _, idx := range order {
		col := 0
		for ; ; col++ {
			free := true
			for _, other := range columns[col] {
				if Overlaps(items[idx], items[other]) {
					free = false
					break
				}
			}
			if free {
				break
			}
		}
		columns[col] = append(columns[col], idx)
		out[idx].Column = col
		if col+1 > total {
			total = col + 1
		}
	}
	for _, idx := range cluster {
		out[idx].TotalColumns = total
	}
}

func startLess(x, y Interval) bool {
	if x.StartRow != y.StartRow {
		return x.StartRow < y.StartRow
	}
	if x.EndRow != y.EndRow {
		return x.EndRow < y.EndRow
	}
	return x.ID < y.ID
}
