package layout

import (
	"testing"

	"github.com/MWATelescope/mwalib/lib/metafits"
)

// fullArray is the geometry-relevant metadata of a 128-tile observation
// with 40 kHz fine channels.
func fullArray() *metafits.Context {
	return &metafits.Context{
		NumRFInputs:           256,
		NumAnts:               128,
		NumBaselines:          metafits.NumBaselinesFor(128),
		NumVisPols:            4,
		NumCoarseChans:        24,
		CoarseChanWidthHz:     1280000,
		CorrFineChanWidthHz:   40000,
		NumFineChansPerCoarse: 32,
		CorrIntTimeMs:         500,
	}
}

func TestForCorrelatorLegacy(t *testing.T) {
	m := fullArray()
	c := ForCorrelator(m, metafits.CorrLegacy)

	if c.NumBaselines != 8256 {
		t.Fatalf("NumBaselines = %d; expected 8256", c.NumBaselines)
	}
	if c.FloatsPerHDU != 8256*32*4*2 {
		t.Errorf("FloatsPerHDU = %d; expected %d",
			c.FloatsPerHDU, 8256*32*4*2)
	}
	if c.BytesPerHDU != int64(c.FloatsPerHDU)*4 {
		t.Errorf("BytesPerHDU = %d; expected %d",
			c.BytesPerHDU, int64(c.FloatsPerHDU)*4)
	}
	// Legacy HDUs are frequency-major: one row per fine channel.
	if c.BaselineMajor {
		t.Errorf("a legacy layout must not be baseline-major")
	}
	if c.NAxis1 != 8256*4*2 || c.NAxis2 != 32 {
		t.Errorf("axes = %d x %d; expected %d x 32",
			c.NAxis1, c.NAxis2, 8256*4*2)
	}
	if c.WeightFloats() != 8256*4 {
		t.Errorf("WeightFloats = %d; expected %d", c.WeightFloats(), 8256*4)
	}
}

func TestForCorrelatorMWAX(t *testing.T) {
	m := fullArray()
	c := ForCorrelator(m, metafits.CorrMWAXv2)

	if !c.BaselineMajor {
		t.Errorf("an MWAX layout must be baseline-major")
	}
	// One row per baseline.
	if c.NAxis1 != 32*4*2 || c.NAxis2 != 8256 {
		t.Errorf("axes = %d x %d; expected %d x 8256",
			c.NAxis1, c.NAxis2, 32*4*2)
	}
	// The float count is shared with the legacy layout.
	if c.FloatsPerHDU != ForCorrelator(m, metafits.CorrLegacy).FloatsPerHDU {
		t.Errorf("the two generations disagree on the HDU float count")
	}
}

func TestForVoltageLegacy(t *testing.T) {
	m := fullArray()
	g := ForVoltage(m, metafits.VCSLegacyRecombined)

	if g.SampleSizeBytes != 1 {
		t.Errorf("SampleSizeBytes = %d; expected 1", g.SampleSizeBytes)
	}
	if g.FineChanWidthHz != 10000 || g.FineChansPerCoarse != 128 {
		t.Errorf("fine channels = %d x %d Hz; expected 128 x 10000",
			g.FineChansPerCoarse, g.FineChanWidthHz)
	}
	if g.SamplesPerBlock != 256*128*10000 {
		t.Errorf("SamplesPerBlock = %d; expected %d",
			g.SamplesPerBlock, 256*128*10000)
	}
	if g.BlocksPerTimestep != 1 || g.BlocksPerSecond != 1 ||
		g.TimestepDurationMs != 1000 {
		t.Errorf("legacy files hold one block per second")
	}
	// No header and no delay block: the file is exactly one block.
	if g.HeaderSizeBytes != 0 || g.DelayBlockSizeBytes != 0 {
		t.Errorf("legacy files have no header")
	}
	if g.ExpectedFileSize != g.BlockSizeBytes || g.DataOffset() != 0 {
		t.Errorf("ExpectedFileSize = %d, DataOffset = %d",
			g.ExpectedFileSize, g.DataOffset())
	}
}

func TestForVoltageMWAX(t *testing.T) {
	m := fullArray()
	g := ForVoltage(m, metafits.VCSMWAXv2)

	if g.SampleSizeBytes != 2 {
		t.Errorf("SampleSizeBytes = %d; expected 2", g.SampleSizeBytes)
	}
	// The whole coarse channel is one fine channel.
	if g.FineChansPerCoarse != 1 || g.FineChanWidthHz != 1280000 {
		t.Errorf("fine channels = %d x %d Hz; expected 1 x 1280000",
			g.FineChansPerCoarse, g.FineChanWidthHz)
	}
	if g.BlockSizeBytes != 256*64000*2 {
		t.Errorf("BlockSizeBytes = %d; expected %d",
			g.BlockSizeBytes, 256*64000*2)
	}
	if g.BlocksPerTimestep != 160 || g.BlocksPerSecond != 20 ||
		g.TimestepDurationMs != 8000 {
		t.Errorf("MWAX files hold 160 blocks over 8 seconds")
	}
	if g.HeaderSizeBytes != 4096 || g.DelayBlockSizeBytes != g.BlockSizeBytes {
		t.Errorf("header = %d, delay block = %d",
			g.HeaderSizeBytes, g.DelayBlockSizeBytes)
	}
	want := int64(4096) + 161*g.BlockSizeBytes
	if g.ExpectedFileSize != want {
		t.Errorf("ExpectedFileSize = %d; expected %d",
			g.ExpectedFileSize, want)
	}
	if g.DataOffset() != 4096+g.BlockSizeBytes {
		t.Errorf("DataOffset = %d; expected %d",
			g.DataOffset(), 4096+g.BlockSizeBytes)
	}
}
