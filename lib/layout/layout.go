/*package layout computes the data-file geometry of MWA observations: how
large a visibility HDU or a voltage block must be, given the observation's
metadata and the instrument version. Everything here is arithmetic over the
metafits model; nothing touches the filesystem. The catalogs use these
numbers to validate files before any data is read, so a malformed file is
rejected up front rather than producing a short read later.*/
package layout

import (
	"github.com/MWATelescope/mwalib/lib/metafits"
)

// Correlator describes one visibility HDU.
//
// The two correlators agree on the float count of an HDU but not its
// shape: legacy HDUs are frequency-major (one row per fine channel), MWAX
// HDUs are baseline-major (one row per baseline).
type Correlator struct {
	NumBaselines       int
	NumVisPols         int
	FineChansPerCoarse int
	// FloatsPerHDU is baselines * fine channels * pols * 2 (complex).
	FloatsPerHDU int
	BytesPerHDU  int64
	// NAxis1 and NAxis2 are the expected FITS image axes of a data HDU.
	NAxis1, NAxis2 int
	// BaselineMajor is true when the file's native order has all of a
	// baseline's channels contiguous (MWAX), false when all of a
	// channel's baselines are contiguous (legacy).
	BaselineMajor bool
	IntTimeMs     uint64
}

// ForCorrelator derives the visibility geometry for a version.
func ForCorrelator(m *metafits.Context, v metafits.MWAVersion) Correlator {
	c := Correlator{
		NumBaselines:       m.NumBaselines,
		NumVisPols:         m.NumVisPols,
		FineChansPerCoarse: m.NumFineChansPerCoarse,
		BaselineMajor:      v == metafits.CorrMWAXv2,
		IntTimeMs:          m.CorrIntTimeMs,
	}
	c.FloatsPerHDU =
		c.NumBaselines * c.FineChansPerCoarse * c.NumVisPols * 2
	c.BytesPerHDU = int64(c.FloatsPerHDU) * 4

	if c.BaselineMajor {
		c.NAxis1 = c.FineChansPerCoarse * c.NumVisPols * 2
		c.NAxis2 = c.NumBaselines
	} else {
		c.NAxis1 = c.NumBaselines * c.NumVisPols * 2
		c.NAxis2 = c.FineChansPerCoarse
	}
	return c
}

// WeightFloats is the float count of one MWAX weights HDU: one value per
// baseline per polarisation product.
func (c Correlator) WeightFloats() int {
	return c.NumBaselines * c.NumVisPols
}

// Voltage describes one voltage-capture file.
//
// Legacy files hold one second of 4-bit+4-bit complex samples for 10 kHz
// fine channels, with no header. MWAX files hold eight seconds of
// 8-bit+8-bit complex samples of the whole coarse channel, preceded by a
// 4096-byte metadata header and one block of delay data.
type Voltage struct {
	// SampleSizeBytes is the size of one complex sample.
	SampleSizeBytes int64
	// SamplesPerBlock counts samples across all RF inputs in one voltage
	// block.
	SamplesPerBlock int64
	BlockSizeBytes  int64
	// BlocksPerTimestep is how many voltage blocks one file holds.
	BlocksPerTimestep int64
	BlocksPerSecond   int64
	// TimestepDurationMs is the time span of one file.
	TimestepDurationMs  uint64
	HeaderSizeBytes     int64
	DelayBlockSizeBytes int64
	FineChanWidthHz     uint32
	FineChansPerCoarse  int
	// ExpectedFileSize is what every data file of the observation must
	// measure, byte for byte.
	ExpectedFileSize int64
}

// ForVoltage derives the voltage-capture geometry for a version. Only the
// two voltage versions are meaningful here.
func ForVoltage(m *metafits.Context, v metafits.MWAVersion) Voltage {
	numInputs := int64(m.NumRFInputs)

	g := Voltage{}
	if v == metafits.VCSMWAXv2 {
		g.SampleSizeBytes = 2
		g.SamplesPerBlock = numInputs * 64000
		g.BlocksPerTimestep = 160
		g.BlocksPerSecond = 20
		g.TimestepDurationMs = 8000
		g.HeaderSizeBytes = 4096
		// MWAX keeps the whole coarse channel as one fine channel.
		g.FineChanWidthHz = m.CoarseChanWidthHz
		g.FineChansPerCoarse = 1
	} else {
		g.SampleSizeBytes = 1
		g.FineChanWidthHz = 10000
		g.FineChansPerCoarse = int(m.CoarseChanWidthHz / g.FineChanWidthHz)
		g.SamplesPerBlock = numInputs * int64(g.FineChansPerCoarse) * 10000
		g.BlocksPerTimestep = 1
		g.BlocksPerSecond = 1
		g.TimestepDurationMs = 1000
	}

	g.BlockSizeBytes = g.SamplesPerBlock * g.SampleSizeBytes
	if v == metafits.VCSMWAXv2 {
		// One voltage block of lead-in delay data follows the header.
		g.DelayBlockSizeBytes = g.BlockSizeBytes
	}
	g.ExpectedFileSize = g.HeaderSizeBytes + g.DelayBlockSizeBytes +
		g.BlocksPerTimestep*g.BlockSizeBytes
	return g
}

// DataOffset is where the first voltage block starts within a file.
func (g Voltage) DataOffset() int64 {
	return g.HeaderSizeBytes + g.DelayBlockSizeBytes
}
