package metafits

import (
	"math"
	"testing"
)

func TestVCSOrderBitShuffle(t *testing.T) {
	// Spot checks of the legacy capture system's input shuffle.
	cases := []struct{ input, order int }{
		{ 0, 0 }, { 1, 4 }, { 2, 8 }, { 15, 60 },
		{ 16, 1 }, { 17, 5 }, { 32, 2 }, { 63, 63 },
		{ 64, 64 }, { 128, 128 }, { 255, 255 },
	}
	for _, c := range cases {
		if got := vcsOrder(c.input); got != c.order {
			t.Errorf("vcsOrder(%d) = %d; expected %d",
				c.input, got, c.order)
		}
	}
}

func TestElectricalLength(t *testing.T) {
	// "EL_" lengths are already electrical; bare lengths are physical
	// cable and get the coax velocity factor.
	x, err := electricalLength("EL_123.4")
	if err != nil || x != 123.4 {
		t.Errorf("electricalLength(EL_123.4) = %g, %v", x, err)
	}
	x, err = electricalLength("100")
	if err != nil || math.Abs(x-120.4) > 1e-9 {
		t.Errorf("electricalLength(100) = %g, %v; expected 120.4", x, err)
	}
	if _, err := electricalLength("EL_abc"); err == nil {
		t.Errorf("expected an error for a non-numeric length")
	}
}

func TestBuildBaselines(t *testing.T) {
	if n := NumBaselinesFor(128); n != 8256 {
		t.Errorf("NumBaselinesFor(128) = %d; expected 8256", n)
	}

	bls := buildBaselines(128)
	if len(bls) != 8256 {
		t.Fatalf("len(buildBaselines(128)) = %d; expected 8256", len(bls))
	}
	if bls[0] != (Baseline{ 0, 0 }) || bls[1] != (Baseline{ 0, 1 }) {
		t.Errorf("baselines 0, 1 = %v, %v", bls[0], bls[1])
	}
	if bls[127] != (Baseline{ 0, 127 }) || bls[128] != (Baseline{ 1, 1 }) {
		t.Errorf("baselines 127, 128 = %v, %v", bls[127], bls[128])
	}
	if bls[8255] != (Baseline{ 127, 127 }) {
		t.Errorf("last baseline = %v; expected {127 127}", bls[8255])
	}
}

func TestBuildAntennasRejectsUnpaired(t *testing.T) {
	if _, err := buildAntennas([]RFInput{ { Ant: 0, Pol: PolX } }); err == nil {
		t.Errorf("expected an error for an odd input count")
	}

	// Two X inputs of the same antenna.
	bad := []RFInput{
		{ Ant: 0, Pol: PolX, SubfileOrder: 0 },
		{ Ant: 0, Pol: PolX, SubfileOrder: 1 },
	}
	if _, err := buildAntennas(bad); err == nil {
		t.Errorf("expected an error for a doubled polarisation")
	}

	// An X/Y pair from different antennas.
	bad = []RFInput{
		{ Ant: 0, Pol: PolX, SubfileOrder: 0 },
		{ Ant: 1, Pol: PolY, SubfileOrder: 1 },
	}
	if _, err := buildAntennas(bad); err == nil {
		t.Errorf("expected an error for a mismatched pair")
	}
}

func TestBuildCoarseChansMWAX(t *testing.T) {
	chans := BuildCoarseChans(CorrMWAXv2, []int{ 131, 129, 130 }, 1280000)
	for i, ch := range chans {
		if ch.RecChanNumber != 129+i {
			t.Errorf("channel %d has receiver channel %d; the list "+
				"should be sorted", i, ch.RecChanNumber)
		}
		// No reversal and no renumbering under MWAX.
		if ch.CorrChanNumber != i || ch.GpuboxNumber != ch.RecChanNumber {
			t.Errorf("channel %d = %+v", i, ch)
		}
	}
}

func TestParseChannels(t *testing.T) {
	chans, err := parseChannels("131, 132,133")
	if err != nil || len(chans) != 3 || chans[2] != 133 {
		t.Errorf("parseChannels gave %v, %v", chans, err)
	}
	if _, err := parseChannels("131,x"); err == nil {
		t.Errorf("expected an error for a malformed list")
	}
}
