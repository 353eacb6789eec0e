package metafits

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrBadChannels = errors.New(
	"metafits: the CHANNELS key cannot be parsed")

// CoarseChan is one coarse channel of the observation.
type CoarseChan struct {
	// CorrChanNumber is the channel's position in correlator output
	// ordering, counting from 0.
	CorrChanNumber int
	// RecChanNumber is the receiver's channel number (0..255 for the
	// legacy receivers), which fixes the sky frequency.
	RecChanNumber int
	// GpuboxNumber identifies which data file carries this channel: the
	// 1-based gpubox number for the legacy correlator, and the receiver
	// channel number for everything MWAX and for voltage captures.
	GpuboxNumber int
	ChanWidthHz  uint32
	ChanStartHz  uint32
	ChanCentreHz uint32
	ChanEndHz    uint32
}

// parseChannels splits the CHANNELS long-string value into receiver
// channel numbers.
func parseChannels(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	chans := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("%w: '%s' is not an integer",
				ErrBadChannels, p)
		}
		chans = append(chans, n)
	}
	if len(chans) == 0 {
		return nil, fmt.Errorf("%w: the list is empty", ErrBadChannels)
	}
	return chans, nil
}

// BuildCoarseChans turns the receiver channel list into full CoarseChan
// records for the given version, sorted by receiver channel number.
//
// The legacy correlator orders its outputs by sky frequency only up to
// receiver channel 128: channels above 128 come out in reverse, a quirk of
// the receiver's aliased sampling. The correlator numbers here reproduce
// that reversal, so a legacy gpubox number cannot be assumed to increase
// with frequency.
func BuildCoarseChans(version MWAVersion, recChans []int, widthHz uint32) []CoarseChan {
	sorted := append([]int{}, recChans...)
	sort.Ints(sorted)

	firstOver128 := len(sorted)
	for i, rc := range sorted {
		if rc > 128 {
			firstOver128 = i
			break
		}
	}

	out := make([]CoarseChan, len(sorted))
	for i, rc := range sorted {
		corr := i
		if version == CorrLegacy || version == VCSLegacyRecombined {
			if rc > 128 {
				corr = (len(sorted) - 1) - (i - firstOver128)
			}
		}

		gpubox := rc
		if version == CorrLegacy { gpubox = corr + 1 }

		centre := uint32(rc) * widthHz
		out[i] = CoarseChan{
			CorrChanNumber: corr,
			RecChanNumber:  rc,
			GpuboxNumber:   gpubox,
			ChanWidthHz:    widthHz,
			ChanStartHz:    centre - widthHz/2,
			ChanCentreHz:   centre,
			ChanEndHz:      centre + widthHz/2,
		}
	}
	return out
}
