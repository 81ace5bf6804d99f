package seqscan

import "sort"

// analyze labels the scanned points once the clusters are final: cluster
// membership, the prev/next clusters around each noise stretch, the
// excursion counters and the per-cluster density ranks.
func analyze(dataset []*Point, clusters []*Region) {
	for _, cluster := range clusters {
		for p := range cluster.points {
			p.cluster = cluster
		}
	}

	// Forward pass: the cluster last seen before each noise point.
	var prev *Region
	for _, p := range dataset {
		if p.cluster == nil {
			p.prev = prev
		} else {
			prev = p.cluster
		}
	}

	// Backward pass: the cluster next seen after each noise point. A noise
	// point framed by the same cluster on both sides is an excursion and
	// charges that cluster's noise counter.
	var next *Region
	for i := len(dataset) - 1; i >= 0; i-- {
		p := dataset[i]
		if p.cluster == nil {
			p.next = next
			if p.next == p.prev && next != nil {
				next.noiseCount++
			}
		} else {
			next = p.cluster
		}
	}

	// Dense rank of neighborhood sizes inside each cluster, rank 1 being
	// the densest; equal counts share a rank.
	for _, cluster := range clusters {
		seen := make(map[int]struct{})
		for p := range cluster.points {
			p.lenNeighbors = len(p.neighbors)
			seen[p.lenNeighbors] = struct{}{}
		}

		densities := make([]int, 0, len(seen))
		for d := range seen {
			densities = append(densities, d)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(densities)))

		rank := make(map[int]int, len(densities))
		for i, d := range densities {
			rank[d] = i + 1
		}
		for p := range cluster.points {
			p.densityRank = rank[p.lenNeighbors]
		}
	}
}
