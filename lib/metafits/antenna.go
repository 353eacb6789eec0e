package metafits

import (
	"errors"
	"fmt"
)

var ErrUnpairedInput = errors.New(
	"metafits: an antenna does not have exactly one X and one Y input")

// Antenna is one tile, i.e. one X/Y pair of RF inputs. X and Y index into
// the context's RFInputs slice.
type Antenna struct {
	Ant      int
	TileID   int
	TileName string
	X, Y     int
	// Position and cable length are duplicated from the X input for
	// convenience; the Y input of a tile shares them.
	ElectricalLengthM float64
	NorthM            float64
	EastM             float64
	HeightM           float64
}

// buildAntennas pairs RF inputs into antennas. The inputs must already be
// in subfile order, so each antenna is two adjacent entries.
func buildAntennas(inputs []RFInput) ([]Antenna, error) {
	if len(inputs)%2 != 0 {
		return nil, fmt.Errorf("%w: there are %d inputs, which is odd",
			ErrUnpairedInput, len(inputs))
	}

	ants := make([]Antenna, len(inputs)/2)
	for i := range ants {
		x, y := &inputs[2*i], &inputs[2*i+1]
		if x.Pol != PolX || y.Pol != PolY || x.Ant != y.Ant {
			return nil, fmt.Errorf("%w: inputs %d and %d are tiles %d%s "+
				"and %d%s", ErrUnpairedInput, 2*i, 2*i+1,
				x.TileID, x.Pol, y.TileID, y.Pol)
		}
		ants[i] = Antenna{
			Ant: x.Ant, TileID: x.TileID, TileName: x.TileName,
			X: 2 * i, Y: 2*i + 1,
			ElectricalLengthM: x.ElectricalLengthM,
			NorthM: x.NorthM, EastM: x.EastM, HeightM: x.HeightM,
		}
	}
	return ants, nil
}
