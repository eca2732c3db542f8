// Package cluster groups bands from different lanes that migrated to nearly
// the same position.
//
// Clusters are grown greedily, closest consecutive pairs first. A cluster never
// holds two bands of one lane, and its members all lie within the match
// threshold of each other.
package cluster

import (
	"sort"

	"gel-analyzer/internal/band"

	"github.com/bits-and-blooms/bitset"
)

// Cluster is a group of homologous bands, at most one per lane.
type Cluster struct {
	ID      int         `json:"id"`
	Members []band.Band `json:"members"` // Sorted by lane
}

// Min returns the smallest member position.
func (c Cluster) Min() int {
	m := c.Members[0].Position
	for _, b := range c.Members[1:] {
		if b.Position < m {
			m = b.Position
		}
	}
	return m
}

// Max returns the largest member position.
func (c Cluster) Max() int {
	m := c.Members[0].Position
	for _, b := range c.Members[1:] {
		if b.Position > m {
			m = b.Position
		}
	}
	return m
}

// Lanes returns the lanes contributing to the cluster, in order.
func (c Cluster) Lanes() []int {
	lanes := make([]int, len(c.Members))
	for i, b := range c.Members {
		lanes[i] = b.Lane
	}
	return lanes
}

// ThresholdFromPercent converts a match distance given as a percentage of
// the image height into rows, truncating toward zero.
func ThresholdFromPercent(percent float64, height int) int {
	return int(percent * float64(height) / 100)
}

// slot is a cluster under construction. Slots are merged with union-find;
// a merged slot points at the older slot it was folded into.
type slot struct {
	parent   int
	lanes    *bitset.BitSet
	min, max int
	members  []int
}

type builder struct {
	bands     []band.Band
	assign    []int // band index -> slot, -1 when unclustered
	slots     []slot
	threshold int
}

func (b *builder) find(s int) int {
	root := s
	for b.slots[root].parent != root {
		root = b.slots[root].parent
	}
	for b.slots[s].parent != root {
		next := b.slots[s].parent
		b.slots[s].parent = root
		s = next
	}
	return root
}

func (b *builder) clusterOf(i int) int {
	if b.assign[i] < 0 {
		return -1
	}
	return b.find(b.assign[i])
}

func (b *builder) newSlot(members ...int) {
	id := len(b.slots)
	s := slot{
		parent: id,
		lanes:  bitset.New(0),
		min:    b.bands[members[0]].Position,
		max:    b.bands[members[0]].Position,
	}
	b.slots = append(b.slots, s)
	for _, m := range members {
		b.add(id, m)
	}
}

func (b *builder) add(s, i int) {
	p := b.bands[i].Position
	sl := &b.slots[s]
	sl.lanes.Set(uint(b.bands[i].Lane))
	sl.members = append(sl.members, i)
	if p < sl.min {
		sl.min = p
	}
	if p > sl.max {
		sl.max = p
	}
	b.assign[i] = s
}

// accepts reports whether band i may join slot s.
func (b *builder) accepts(s, i int) bool {
	sl := &b.slots[s]
	if sl.lanes.Test(uint(b.bands[i].Lane)) {
		return false
	}
	p := b.bands[i].Position
	return abs(p-sl.min) <= b.threshold && abs(p-sl.max) <= b.threshold
}

// merge folds the younger of two slots into the older one when they share no
// lane and every cross pair is within the threshold.
func (b *builder) merge(s1, s2 int) {
	a, c := &b.slots[s1], &b.slots[s2]
	if a.lanes.IntersectionCardinality(c.lanes) != 0 {
		return
	}
	if a.max-c.min > b.threshold || c.max-a.min > b.threshold {
		return
	}

	keep, drop := s1, s2
	if drop < keep {
		keep, drop = drop, keep
	}
	k, d := &b.slots[keep], &b.slots[drop]
	k.lanes.InPlaceUnion(d.lanes)
	k.members = append(k.members, d.members...)
	if d.min < k.min {
		k.min = d.min
	}
	if d.max > k.max {
		k.max = d.max
	}
	d.parent = keep
	d.members = nil
}

func (b *builder) singleton(i int) {
	if b.assign[i] < 0 {
		b.newSlot(i)
	}
}

// Match clusters bands from all lanes. Bands are ordered by position and the
// gaps between consecutive bands are visited from smallest to largest; each
// pair is joined when its gap is within threshold, the lanes differ and the
// cluster constraints hold. Every band ends up in exactly one cluster.
//
// Clusters are returned in increasing order of their smallest position and
// their ids equal their index. The input slice is not modified.
func Match(bands []band.Band, threshold int) []Cluster {
	if len(bands) == 0 {
		return nil
	}

	sorted := make([]band.Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	b := &builder{
		bands:     sorted,
		assign:    make([]int, len(sorted)),
		threshold: threshold,
	}
	for i := range b.assign {
		b.assign[i] = -1
	}

	gaps := make([]int, len(sorted)-1)
	order := make([]int, len(gaps))
	for i := range gaps {
		gaps[i] = sorted[i+1].Position - sorted[i].Position
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return gaps[order[x]] < gaps[order[y]]
	})

	for _, i := range order {
		j := i + 1
		if gaps[i] > threshold || sorted[i].Lane == sorted[j].Lane {
			b.singleton(i)
			b.singleton(j)
			continue
		}

		ci, cj := b.clusterOf(i), b.clusterOf(j)
		switch {
		case ci < 0 && cj < 0:
			b.newSlot(i, j)
		case ci >= 0 && cj < 0:
			if b.accepts(ci, j) {
				b.add(ci, j)
			} else {
				b.newSlot(j)
			}
		case ci < 0 && cj >= 0:
			if b.accepts(cj, i) {
				b.add(cj, i)
			} else {
				b.newSlot(i)
			}
		case ci != cj:
			b.merge(ci, cj)
		}
	}

	// A lone band has no neighbour pair.
	for i := range sorted {
		b.singleton(i)
	}

	return b.collect()
}

func (b *builder) collect() []Cluster {
	var clusters []Cluster
	for id := range b.slots {
		s := &b.slots[id]
		if s.parent != id {
			continue
		}
		members := make([]band.Band, len(s.members))
		for k, m := range s.members {
			members[k] = b.bands[m]
		}
		sort.SliceStable(members, func(x, y int) bool {
			return members[x].Lane < members[y].Lane
		})
		clusters = append(clusters, Cluster{Members: members})
	}

	sort.SliceStable(clusters, func(x, y int) bool {
		return clusters[x].Min() < clusters[y].Min()
	})
	for k := range clusters {
		clusters[k].ID = k
		for m := range clusters[k].Members {
			clusters[k].Members[m].Cluster = k
		}
	}
	return clusters
}

// Label returns a copy of the per-lane band lists with cluster ids taken from
// clusters. Bands that belong to no cluster stay band.Unassigned.
func Label(perLane [][]band.Band, clusters []Cluster) [][]band.Band {
	type key struct{ lane, pos int }
	ids := make(map[key]int)
	for _, c := range clusters {
		for _, m := range c.Members {
			ids[key{m.Lane, m.Position}] = c.ID
		}
	}

	out := make([][]band.Band, len(perLane))
	for l, bands := range perLane {
		out[l] = make([]band.Band, len(bands))
		for k, bd := range bands {
			bd.Cluster = band.Unassigned
			if id, ok := ids[key{bd.Lane, bd.Position}]; ok {
				bd.Cluster = id
			}
			out[l][k] = bd
		}
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
