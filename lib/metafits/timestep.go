package metafits

// TimeStep is one integration (or voltage capture interval), identified in
// both time scales. Both values are the start of the interval.
type TimeStep struct {
	UnixMs uint64
	GPSMs  uint64
}

// EnumerateTimesteps lists the timesteps from startGPSMs (inclusive) to
// endGPSMs (exclusive) at stepMs spacing. The unix times are derived from
// the same anchor pair used by Context.GpsToUnixMs.
func EnumerateTimesteps(startGPSMs, endGPSMs, stepMs, anchorGPSMs, anchorUnixMs uint64) []TimeStep {
	out := []TimeStep{}
	for gps := startGPSMs; gps < endGPSMs; gps += stepMs {
		out = append(out, TimeStep{
			GPSMs:  gps,
			UnixMs: anchorUnixMs + gps - anchorGPSMs,
		})
	}
	return out
}
