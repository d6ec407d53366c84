package dataset

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GroupStat is the mean of a value column over one key.
type GroupStat struct {
	Key   string
	Count int
	Mean  float64
}

// GroupMean averages the numeric column value per distinct entry of column
// key. Groups are ordered by key.
func (f *Frame) GroupMean(key, value string) ([]GroupStat, error) {
	keys, err := f.Strings(key)
	if err != nil {
		return nil, err
	}
	vals, err := f.Floats(value)
	if err != nil {
		return nil, err
	}

	groups := map[string][]float64{}
	for i, k := range keys {
		groups[k] = append(groups[k], vals[i])
	}

	out := make([]GroupStat, 0, len(groups))
	for k, vs := range groups {
		out = append(out, GroupStat{Key: k, Count: len(vs), Mean: stat.Mean(vs, nil)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
