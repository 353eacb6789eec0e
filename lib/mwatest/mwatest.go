/*package mwatest builds small synthetic MWA files for tests: a metafits
file with a consistent set of header keys and a tile table, correlator
visibility files of either generation, and sparse voltage files. Real MWA
files are far too large to commit, and hand-hexed fixtures rot, so the
tests generate what they read.*/
package mwatest

import (
	"fmt"
	"os"

	"github.com/MWATelescope/mwalib/lib/fits"
	"github.com/MWATelescope/mwalib/lib/layout"
	"github.com/MWATelescope/mwalib/lib/metafits"
)

// Obs is the knob set for a synthetic observation. The zero value is not
// usable; start from DefaultObs.
type Obs struct {
	ObsID   uint32
	NumAnts int
	// Chans is the receiver coarse channel list, lowest first.
	Chans []int
	Mode  string
	// IntTimeS and FineChanKHz are the correlator settings.
	IntTimeS    float64
	FineChanKHz float64
	ExposureS   int
	QuackS      float64
	// GoodTimeUnixS is the unix time when the quack time ends.
	GoodTimeUnixS float64
	DateObs       string
}

// DefaultObs is a two-tile observation over 24 coarse channels that
// straddle receiver channel 128, so the legacy channel reversal is in
// play. The times are those of a real 2014 observation.
func DefaultObs() Obs {
	chans := make([]int, 24)
	for i := range chans { chans[i] = 109 + i }
	return Obs{
		ObsID:         1101503312,
		NumAnts:       2,
		Chans:         chans,
		Mode:          "HW_LFILES",
		IntTimeS:      2.0,
		FineChanKHz:   10,
		ExposureS:     112,
		QuackS:        2.0,
		GoodTimeUnixS: 1417468098.0,
		DateObs:       "2014-12-01T21:08:02",
	}
}

// coarseWidthMHz keeps the coarse channel width at the MWA's fixed
// 1.28 MHz no matter how many channels an Obs carries.
const coarseWidthMHz = 1.28

// WriteMetafits writes a metafits file for the observation. The tile table
// rows are written out of subfile order on purpose, since real metafits
// files are input-ordered and readers must sort.
func WriteMetafits(path string, o Obs) error {
	numInputs := o.NumAnts * 2
	numChans := len(o.Chans)

	channels := ""
	for i, ch := range o.Chans {
		if i > 0 { channels += "," }
		channels += fmt.Sprintf("%d", ch)
	}

	w := fits.NewWriter()
	w.AddPrimary([]fits.Card{
		fits.IntCard("GPSTIME", int64(o.ObsID)),
		fits.StrCard("FILENAME", "high_season1_2456992"),
		fits.StrCard("DATE-OBS", o.DateObs),
		fits.StrCard("MODE", o.Mode),
		fits.StrCard("PROJECT", "G0009"),
		fits.StrCard("CREATOR", "Randall"),
		fits.IntCard("NINPUTS", int64(numInputs)),
		fits.IntCard("NSCANS", int64(int(float64(o.ExposureS)/o.IntTimeS))),
		fits.FloatCard("INTTIME", o.IntTimeS),
		fits.FloatCard("FINECHAN", o.FineChanKHz),
		fits.FloatCard("BANDWDTH", coarseWidthMHz*float64(numChans)),
		fits.FloatCard("FREQCENT", 154.24),
		fits.LongStrCard("CHANNELS", channels),
		fits.IntCard("EXPOSURE", int64(o.ExposureS)),
		fits.FloatCard("QUACKTIM", o.QuackS),
		fits.FloatCard("GOODTIME", o.GoodTimeUnixS),
		fits.FloatCard("RA", 144.2107504850443),
		fits.FloatCard("DEC", -26.78389961),
		fits.FloatCard("RAPHASE", 145.0),
		fits.FloatCard("DECPHASE", -26.5),
		fits.FloatCard("AZIMUTH", 0.0),
		fits.FloatCard("ALTITUDE", 90.0),
		fits.FloatCard("ATTEN_DB", 1.0),
		fits.StrCard("RECVRS", "1,2"),
		fits.StrCard("DELAYS", "0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0"),
	})
	w.AddBinTable("TILEDATA", nil, tileTable(o))
	return w.WriteFile(path)
}

// tileTable builds TILEDATA columns with rows deliberately ordered Y
// before X within each tile.
func tileTable(o Obs) []fits.Column {
	numInputs := o.NumAnts * 2
	numChans := len(o.Chans)

	input := make([]int32, numInputs)
	antenna := make([]int32, numInputs)
	tile := make([]int32, numInputs)
	tileName := make([]string, numInputs)
	pol := make([]string, numInputs)
	length := make([]string, numInputs)
	north := make([]float32, numInputs)
	east := make([]float32, numInputs)
	height := make([]float32, numInputs)
	flag := make([]int32, numInputs)
	gains := make([][]int32, numInputs)
	delays := make([][]int16, numInputs)
	rx := make([]int32, numInputs)
	slot := make([]int32, numInputs)

	for a := 0; a < o.NumAnts; a++ {
		for p := 0; p < 2; p++ {
			// Y first, to exercise subfile-order sorting.
			row := a*2 + (1 - p)
			input[row] = int32(a*2 + p)
			antenna[row] = int32(a)
			tile[row] = int32(11 + a)
			tileName[row] = fmt.Sprintf("Tile%03d", 11+a)
			if p == 0 { pol[row] = "X" } else { pol[row] = "Y" }
			if a == 0 {
				length[row] = "EL_123.4"
			} else {
				length[row] = "100"
			}
			north[row] = float32(a) * 10
			east[row] = float32(a) * -20
			height[row] = 375
			flag[row] = 0
			g := make([]int32, numChans)
			for i := range g { g[i] = 64 }
			gains[row] = g
			d := make([]int16, 16)
			delays[row] = d
			rx[row] = int32(a/8 + 1)
			slot[row] = int32(a%8 + 1)
		}
	}

	return []fits.Column{
		{ Name: "Input", Form: "J", Data: input },
		{ Name: "Antenna", Form: "J", Data: antenna },
		{ Name: "Tile", Form: "J", Data: tile },
		{ Name: "TileName", Form: "10A", Data: tileName },
		{ Name: "Pol", Form: "1A", Data: pol },
		{ Name: "Length", Form: "14A", Data: length },
		{ Name: "North", Form: "E", Data: north },
		{ Name: "East", Form: "E", Data: east },
		{ Name: "Height", Form: "E", Data: height },
		{ Name: "Flag", Form: "J", Data: flag },
		{ Name: "Gains", Form: fmt.Sprintf("%dJ", numChans), Data: gains },
		{ Name: "Delays", Form: "16I", Data: delays },
		{ Name: "Rx", Form: "J", Data: rx },
		{ Name: "Slot", Form: "J", Data: slot },
	}
}

// Gpubox is the knob set for one synthetic visibility file.
type Gpubox struct {
	MWAX bool
	// Channel is the filename channel: the gpubox number for legacy, the
	// receiver channel number for MWAX.
	Channel int
	Batch   int
	// StartUnixMs is the time of the first data HDU.
	StartUnixMs uint64
	NumHDUs     int
	// Fill produces float i of data HDU h; nil means a ramp offset by h.
	Fill func(h, i int) float32
	// CorrVerOverride writes a wrong CORR_VER value when nonzero.
	CorrVerOverride int
	// ObsIDOverride writes a wrong OBSID when nonzero.
	ObsIDOverride uint32
}

// WriteGpubox writes one visibility file consistent with the observation's
// geometry. MWAX files get a weights HDU after every data HDU.
func WriteGpubox(path string, o Obs, m *metafits.Context, g Gpubox) error {
	v := metafits.CorrLegacy
	if g.MWAX { v = metafits.CorrMWAXv2 }
	lay := layout.ForCorrelator(m, v)

	obsID := int64(o.ObsID)
	if g.ObsIDOverride != 0 { obsID = int64(g.ObsIDOverride) }

	primary := []fits.Card{
		fits.IntCard("OBSID", obsID),
	}
	switch {
	case g.CorrVerOverride != 0:
		primary = append(primary,
			fits.IntCard("CORR_VER", int64(g.CorrVerOverride)))
	case g.MWAX:
		primary = append(primary, fits.IntCard("CORR_VER", 2))
	}
	// The primary header carries the first HDU's time too.
	primary = append(primary,
		fits.IntCard("TIME", int64(g.StartUnixMs/1000)),
		fits.IntCard("MILLITIM", int64(g.StartUnixMs%1000)),
	)

	w := fits.NewWriter()
	w.AddPrimary(primary)

	intMs := m.CorrIntTimeMs
	for h := 0; h < g.NumHDUs; h++ {
		t := g.StartUnixMs + uint64(h)*intMs
		cards := []fits.Card{
			fits.IntCard("TIME", int64(t/1000)),
			fits.IntCard("MILLITIM", int64(t%1000)),
		}

		data := make([]float32, lay.FloatsPerHDU)
		for i := range data {
			if g.Fill != nil {
				data[i] = g.Fill(h, i)
			} else {
				data[i] = float32(h*1000 + i)
			}
		}
		w.AddImageFloat32(cards, lay.NAxis1, lay.NAxis2, data)

		if g.MWAX {
			weights := make([]float32, lay.WeightFloats())
			for i := range weights { weights[i] = 1 + float32(h)/10 }
			w.AddImageFloat32(cards, lay.NumVisPols, lay.NumBaselines,
				weights)
		}
	}
	return w.WriteFile(path)
}

// WriteVoltage writes a sparse voltage file of exactly the expected size,
// with mark(b) written at the first byte of block b so reads can verify
// they landed on the right block. The bulk of the file is holes.
func WriteVoltage(path string, g layout.Voltage, mark func(b int64) byte) error {
	f, err := os.Create(path)
	if err != nil { return err }
	defer f.Close()

	if err = f.Truncate(g.ExpectedFileSize); err != nil { return err }
	for b := int64(0); b < g.BlocksPerTimestep; b++ {
		offset := g.DataOffset() + b*g.BlockSizeBytes
		if _, err = f.WriteAt([]byte{ mark(b) }, offset); err != nil {
			return err
		}
	}
	return nil
}
