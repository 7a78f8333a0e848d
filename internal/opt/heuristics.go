package opt

import "math"

// ImproveOrder2Opt applies a simple 2-opt heuristic to a closed tour that
// leaves from and returns to depot, and returns the shortened visiting order.
func ImproveOrder2Opt(depot Point, nodes []Point, order []int, iterations int) []int {
	if iterations <= 0 {
		iterations = 1
	}
	best := append([]int(nil), order...)
	bestDist := tourLength(depot, nodes, best)
	n := len(order)
	for it := 0; it < iterations; it++ {
		improved := false
		for i := 0; i < n-1; i++ {
			for k := i + 1; k < n; k++ {
				newOrder := twoOptSwap(best, i, k)
				d := tourLength(depot, nodes, newOrder)
				if d+1e-9 < bestDist {
					best = newOrder
					bestDist = d
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return best
}

func twoOptSwap(ord []int, i, k int) []int {
	out := make([]int, len(ord))
	copy(out, ord[:i])
	// reverse i..k
	pos := i
	for j := k; j >= i; j-- {
		out[pos] = ord[j]
		pos++
	}
	copy(out[pos:], ord[k+1:])
	return out
}

func tourLength(depot Point, nodes []Point, order []int) float64 {
	if len(order) == 0 {
		return 0
	}
	total := 0.0
	prev := depot
	for _, idx := range order {
		total += dist(prev, nodes[idx])
		prev = nodes[idx]
	}
	return total + dist(prev, depot)
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
