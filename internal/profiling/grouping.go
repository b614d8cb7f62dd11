package profiling

import "scifig/domain/analysis"

// GroupIndex partitions row positions by group label in a single pass.
// Labels keep first-seen order; Indices[i] holds the row positions of
// Labels[i], so consumers slice the shared rows instead of re-filtering them
// once per group.
type GroupIndex struct {
	Column  string
	Labels  []string
	Indices [][]int
}

// BuildGroupIndex groups rows by the given column. Rows whose group cell is
// missing are skipped.
func BuildGroupIndex(rows []analysis.Row, column string) GroupIndex {
	idx := GroupIndex{Column: column}
	position := make(map[string]int)

	for i, row := range rows {
		v := row[column]
		if IsMissing(v) {
			continue
		}
		label := Label(v)
		pos, ok := position[label]
		if !ok {
			pos = len(idx.Labels)
			position[label] = pos
			idx.Labels = append(idx.Labels, label)
			idx.Indices = append(idx.Indices, nil)
		}
		idx.Indices[pos] = append(idx.Indices[pos], i)
	}

	return idx
}

// Len returns the number of groups
func (g GroupIndex) Len() int {
	return len(g.Labels)
}

// Sizes returns label -> row count
func (g GroupIndex) Sizes() map[string]int {
	sizes := make(map[string]int, len(g.Labels))
	for i, label := range g.Labels {
		sizes[label] = len(g.Indices[i])
	}
	return sizes
}

// Total returns the number of indexed rows
func (g GroupIndex) Total() int {
	n := 0
	for _, ix := range g.Indices {
		n += len(ix)
	}
	return n
}
