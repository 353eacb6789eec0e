/*package mwalib reads metadata and raw data from Murchison Widefield
Array observations. An observation is described by a metafits file and
optionally accompanied by data files: visibility FITS files from one of
the two correlators, or voltage files from one of the two voltage capture
systems. This package ties the metadata model, the geometry rules and the
data-file catalogs together into three context types:

  - MetafitsContext: metadata alone, no data files.
  - CorrelatorContext: metadata plus visibility files, with byte-exact
    reads of one integration of one coarse channel at a time.
  - VoltageContext: metadata plus voltage files, with reads of whole
    files or spans of GPS seconds.

All three contexts are immutable once constructed and hold no open file
handles, so they may be shared freely between goroutines. Reads open the
file they need, read it, and close it again.*/
package mwalib

import (
	"github.com/MWATelescope/mwalib/lib/metafits"
)

// Version is the version of this library.
const Version = "1.0.0"

// MWAVersion identifies the instrument generation; see the metafits
// package for the values' meanings.
type MWAVersion = metafits.MWAVersion

const (
	VersionNone         = metafits.VersionNone
	CorrLegacy          = metafits.CorrLegacy
	CorrMWAXv2          = metafits.CorrMWAXv2
	VCSLegacyRecombined = metafits.VCSLegacyRecombined
	VCSMWAXv2           = metafits.VCSMWAXv2
)

// mergeTimesteps builds the union of the scheduled timesteps and the
// timesteps actually covered by data, sorted, at stepMs spacing. Data can
// start before or run past the schedule, so neither list contains the
// other in general.
func mergeTimesteps(sched []metafits.TimeStep, dataGPSMs []uint64, stepMs uint64, m *metafits.Context) []metafits.TimeStep {
	seen := map[uint64]bool{}
	for _, ts := range sched { seen[ts.GPSMs] = true }
	for _, gps := range dataGPSMs { seen[gps] = true }
	if len(seen) == 0 { return []metafits.TimeStep{} }

	min, max := uint64(0), uint64(0)
	for gps := range seen {
		if min == 0 || gps < min { min = gps }
		if gps > max { max = gps }
	}

	// Walk the full span so interior gaps become known-possible
	// timesteps rather than holes in the axis.
	return metafits.EnumerateTimesteps(min, max+stepMs, stepMs,
		m.SchedStartGPSMs, m.SchedStartUnixMs)
}
