package metafits

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/MWATelescope/mwalib/lib/fits"
)

// Velocity factor of the coaxial cable type used by MWA tiles. Cable
// lengths in the tile table are physical unless prefixed with "EL_", which
// marks an already-electrical length.
const coaxVFactor = 1.204

// Pol is the polarisation of a single receiver input.
type Pol int

const (
	PolX Pol = iota
	PolY
)

func (p Pol) String() string {
	if p == PolX { return "X" }
	return "Y"
}

// RFInput is one physical signal path: one polarisation of one tile. An
// observation has exactly two of these per antenna.
type RFInput struct {
	// Input is the correlator input number from the tile table.
	Input int
	// Ant is the antenna number shared by this input's X/Y pair.
	Ant int
	TileID   int
	TileName string
	Pol      Pol
	// ElectricalLengthM is the signal path length in meters, after
	// applying the coax velocity factor to physical lengths.
	ElectricalLengthM float64
	NorthM            float64
	EastM             float64
	HeightM           float64
	// VCSOrder is the position of this input in legacy voltage-capture
	// output, a bit shuffle of the input number.
	VCSOrder int
	// SubfileOrder is the position of this input in MWAX output:
	// antenna-major, X before Y.
	SubfileOrder int
	Flagged      bool
	// DigitalGains holds one gain per coarse channel, already divided by
	// the firmware's fixed-point scale of 64.
	DigitalGains []float64
	// DipoleDelays holds the 16 beamformer delays for this input.
	DipoleDelays []int
	RxNumber     int
	RxSlot       int
	// Flavour is the signal-chain flavour, if the metafits records one.
	Flavour string
	// WhiteningFilter reports whether this input's signal chain has a
	// whitening filter, if the metafits records it.
	WhiteningFilter *bool
}

// readRFInputs builds the RF input list from a TILEDATA table, sorted into
// subfile order.
func readRFInputs(tab *fits.Table, path string) ([]RFInput, error) {
	inputs := make([]RFInput, tab.NumRows)
	for row := 0; row < tab.NumRows; row++ {
		in, err := readRFInput(tab, row)
		if err != nil {
			return nil, fmt.Errorf("metafits %s: tile table row %d: %w",
				path, row, err)
		}
		inputs[row] = in
	}

	sort.Slice(inputs, func(i, j int) bool {
		return inputs[i].SubfileOrder < inputs[j].SubfileOrder
	})
	return inputs, nil
}

func readRFInput(tab *fits.Table, row int) (RFInput, error) {
	in := RFInput{}
	var err error

	if in.Input, err = tab.Int("Input", row); err != nil { return in, err }
	if in.Ant, err = tab.Int("Antenna", row); err != nil { return in, err }
	if in.TileID, err = tab.Int("Tile", row); err != nil { return in, err }
	if in.TileName, err = tab.Str("TileName", row); err != nil { return in, err }

	pol, err := tab.Str("Pol", row)
	if err != nil { return in, err }
	switch pol {
	case "X": in.Pol = PolX
	case "Y": in.Pol = PolY
	default:
		return in, fmt.Errorf("the Pol column holds '%s', not 'X' or 'Y'",
			pol)
	}

	length, err := tab.Str("Length", row)
	if err != nil { return in, err }
	if in.ElectricalLengthM, err = electricalLength(length); err != nil {
		return in, err
	}

	if in.NorthM, err = tab.Float("North", row); err != nil { return in, err }
	if in.EastM, err = tab.Float("East", row); err != nil { return in, err }
	if in.HeightM, err = tab.Float("Height", row); err != nil { return in, err }

	flag, err := tab.Int("Flag", row)
	if err != nil { return in, err }
	in.Flagged = flag != 0

	gains, err := tab.Ints("Gains", row)
	if err != nil { return in, err }
	in.DigitalGains = make([]float64, len(gains))
	for i, g := range gains {
		in.DigitalGains[i] = float64(g) / 64
	}

	if in.DipoleDelays, err = tab.Ints("Delays", row); err != nil {
		return in, err
	}
	if in.RxNumber, err = tab.Int("Rx", row); err != nil { return in, err }
	if in.RxSlot, err = tab.Int("Slot", row); err != nil { return in, err }

	// Newer metafits versions only.
	if tab.HasCol("Flavors") {
		if in.Flavour, err = tab.Str("Flavors", row); err != nil {
			return in, err
		}
	}
	if tab.HasCol("Whitening_Filter") {
		w, err := tab.Int("Whitening_Filter", row)
		if err != nil { return in, err }
		has := w != 0
		in.WhiteningFilter = &has
	}

	in.VCSOrder = vcsOrder(in.Input)
	in.SubfileOrder = in.Ant*2 + int(in.Pol)
	return in, nil
}

// vcsOrder is the bit shuffle the legacy voltage capture system applies to
// correlator input numbers.
func vcsOrder(input int) int {
	return (input & 0xC0) | ((input & 0x30) >> 4) | ((input & 0x0F) << 2)
}

// electricalLength converts a tile table Length string to meters. Values
// prefixed "EL_" are already electrical; bare values are physical cable
// lengths and get the coax velocity factor applied.
func electricalLength(s string) (float64, error) {
	electrical := false
	if strings.HasPrefix(s, "EL_") {
		electrical = true
		s = s[3:]
	}
	x, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("the Length column holds '%s', which is not "+
			"a number", s)
	}
	if !electrical { x *= coaxVFactor }
	return x, nil
}
