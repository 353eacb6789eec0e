package metafits

// Baseline is one pair of antennas, including the auto-correlation pairs
// where both are the same antenna.
type Baseline struct {
	Ant1, Ant2 int
}

// NumBaselinesFor returns the baseline count for numAnts antennas,
// counting autos: n(n+1)/2.
func NumBaselinesFor(numAnts int) int {
	return numAnts * (numAnts + 1) / 2
}

// buildBaselines enumerates baselines in the order the correlator emits
// them: (0,0), (0,1), ... (0,n-1), (1,1), (1,2), ...
func buildBaselines(numAnts int) []Baseline {
	bls := make([]Baseline, 0, NumBaselinesFor(numAnts))
	for i := 0; i < numAnts; i++ {
		for j := i; j < numAnts; j++ {
			bls = append(bls, Baseline{ Ant1: i, Ant2: j })
		}
	}
	return bls
}
