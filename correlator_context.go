package mwalib

import (
	"fmt"

	"github.com/MWATelescope/mwalib/lib/fits"
	"github.com/MWATelescope/mwalib/lib/gpuboxfiles"
	"github.com/MWATelescope/mwalib/lib/layout"
	"github.com/MWATelescope/mwalib/lib/metafits"
)

// CorrelatorContext is an observation's metadata plus a validated set of
// visibility files. The timestep and coarse channel axes cover everything
// the observation could have - the scheduled span merged with whatever the
// files actually hold - and the Provided lists say which coordinates have
// data behind them.
type CorrelatorContext struct {
	Metafits *metafits.Context
	Version  MWAVersion
	Layout   layout.Correlator

	Timesteps    []metafits.TimeStep
	NumTimesteps int
	// ProvidedTimesteps indexes the timesteps at least one file covers.
	ProvidedTimesteps []int

	CoarseChans    []metafits.CoarseChan
	NumCoarseChans int
	// ProvidedCoarseChans indexes the coarse channels with a file.
	ProvidedCoarseChans []int

	// The common time range: integrations present for every provided
	// channel. CommonEndUnixMs is exclusive.
	CommonStartUnixMs uint64
	CommonEndUnixMs   uint64
	CommonDurationMs  uint64
	CommonBandwidthHz uint32

	catalog *gpuboxfiles.Catalog
}

// NewCorrelatorContext reads a metafits file and catalogs the given
// visibility files against it.
func NewCorrelatorContext(metafitsPath string, gpuboxPaths []string) (*CorrelatorContext, error) {
	m, err := metafits.New(metafitsPath, metafits.VersionNone)
	if err != nil { return nil, err }

	cat, err := gpuboxfiles.New(gpuboxPaths, m)
	if err != nil { return nil, err }
	if m.Version != cat.Version {
		return nil, fmt.Errorf("%w: the metafits says %s, the files say "+
			"%s", ErrVersionConflict, m.Version, cat.Version)
	}

	c := &CorrelatorContext{
		Metafits: m,
		Version:  cat.Version,
		Layout:   layout.ForCorrelator(m, cat.Version),
		catalog:  cat,
	}

	dataGPSMs := []uint64{}
	for _, t := range cat.Times() {
		dataGPSMs = append(dataGPSMs, m.UnixToGpsMs(t))
	}
	c.Timesteps = mergeTimesteps(m.TimestepsFor(cat.Version), dataGPSMs,
		m.CorrIntTimeMs, m)
	c.NumTimesteps = len(c.Timesteps)
	for i, ts := range c.Timesteps {
		if _, ok := cat.TimeMap[ts.UnixMs]; ok {
			c.ProvidedTimesteps = append(c.ProvidedTimesteps, i)
		}
	}

	provided := map[int]bool{}
	for _, id := range cat.ChanIDs { provided[id] = true }
	c.CoarseChans = m.CoarseChans
	c.NumCoarseChans = len(c.CoarseChans)
	for i, ch := range c.CoarseChans {
		if provided[ch.GpuboxNumber] {
			c.ProvidedCoarseChans = append(c.ProvidedCoarseChans, i)
		}
	}

	c.CommonStartUnixMs = cat.StartUnixMs
	c.CommonEndUnixMs = cat.EndUnixMs
	c.CommonDurationMs = cat.DurationMs
	c.CommonBandwidthHz =
		uint32(len(c.ProvidedCoarseChans)) * m.CoarseChanWidthHz
	return c, nil
}

// locate validates a (timestep, coarse channel) pair and finds its HDU.
func (c *CorrelatorContext) locate(tsIdx, chanIdx int) (gpuboxfiles.Slot, error) {
	if tsIdx < 0 || tsIdx >= c.NumTimesteps {
		return gpuboxfiles.Slot{}, fmt.Errorf("%w: %d of %d",
			ErrInvalidTimestepIndex, tsIdx, c.NumTimesteps)
	}
	if chanIdx < 0 || chanIdx >= c.NumCoarseChans {
		return gpuboxfiles.Slot{}, fmt.Errorf("%w: %d of %d",
			ErrInvalidCoarseChanIndex, chanIdx, c.NumCoarseChans)
	}
	slot, ok := c.catalog.Lookup(c.Timesteps[tsIdx].UnixMs,
		c.CoarseChans[chanIdx].GpuboxNumber)
	if !ok {
		return gpuboxfiles.Slot{}, fmt.Errorf("%w: timestep %d, coarse "+
			"channel %d", ErrNoData, tsIdx, chanIdx)
	}
	return slot, nil
}

// readHDU fetches and size-checks one visibility HDU.
func (c *CorrelatorContext) readHDU(slot gpuboxfiles.Slot, hduOffset, wantFloats int) ([]float32, error) {
	path := c.catalog.Files[slot.File].Path
	f, err := fits.Open(path)
	if err != nil { return nil, err }
	data, err := f.ImageFloat32(slot.HDU + hduOffset)
	if err != nil { return nil, err }
	if len(data) != wantFloats {
		return nil, fmt.Errorf("%w: '%s' HDU %d delivered %d floats; "+
			"expected %d", ErrShortRead, path, slot.HDU+hduOffset,
			len(data), wantFloats)
	}
	return data, nil
}

// ReadByBaseline returns one integration of one coarse channel in
// baseline-major order: [baseline][fine channel][pol][real, imag]. The
// returned buffer is freshly allocated on every call.
func (c *CorrelatorContext) ReadByBaseline(tsIdx, chanIdx int) ([]float32, error) {
	slot, err := c.locate(tsIdx, chanIdx)
	if err != nil { return nil, err }
	data, err := c.readHDU(slot, 0, c.Layout.FloatsPerHDU)
	if err != nil { return nil, err }

	if !c.Layout.BaselineMajor {
		data = toBaselineOrder(data, c.Layout.NumBaselines,
			c.Layout.FineChansPerCoarse, c.Layout.NumVisPols)
	}
	return data, nil
}

// ReadByFrequency returns one integration of one coarse channel in
// frequency-major order: [fine channel][baseline][pol][real, imag]. The
// returned buffer is freshly allocated on every call.
func (c *CorrelatorContext) ReadByFrequency(tsIdx, chanIdx int) ([]float32, error) {
	slot, err := c.locate(tsIdx, chanIdx)
	if err != nil { return nil, err }
	data, err := c.readHDU(slot, 0, c.Layout.FloatsPerHDU)
	if err != nil { return nil, err }

	if c.Layout.BaselineMajor {
		data = toFrequencyOrder(data, c.Layout.NumBaselines,
			c.Layout.FineChansPerCoarse, c.Layout.NumVisPols)
	}
	return data, nil
}

// ReadWeightsByBaseline returns the weights of one integration of one
// coarse channel, one value per baseline per polarisation product. The
// legacy correlator recorded no weights, so legacy observations get 1.0
// everywhere.
func (c *CorrelatorContext) ReadWeightsByBaseline(tsIdx, chanIdx int) ([]float32, error) {
	slot, err := c.locate(tsIdx, chanIdx)
	if err != nil { return nil, err }

	if c.Version != CorrMWAXv2 {
		weights := make([]float32, c.Layout.WeightFloats())
		for i := range weights { weights[i] = 1 }
		return weights, nil
	}
	// MWAX stores weights in the HDU after each visibility HDU.
	return c.readHDU(slot, 1, c.Layout.WeightFloats())
}

// toBaselineOrder permutes a frequency-major HDU into baseline-major
// order.
func toBaselineOrder(in []float32, numBl, numFine, numPols int) []float32 {
	out := make([]float32, len(in))
	i := 0
	for f := 0; f < numFine; f++ {
		for b := 0; b < numBl; b++ {
			for p := 0; p < numPols; p++ {
				o := ((b*numFine+f)*numPols + p) * 2
				out[o] = in[i]
				out[o+1] = in[i+1]
				i += 2
			}
		}
	}
	return out
}

// toFrequencyOrder permutes a baseline-major HDU into frequency-major
// order.
func toFrequencyOrder(in []float32, numBl, numFine, numPols int) []float32 {
	out := make([]float32, len(in))
	i := 0
	for b := 0; b < numBl; b++ {
		for f := 0; f < numFine; f++ {
			for p := 0; p < numPols; p++ {
				o := ((f*numBl+b)*numPols + p) * 2
				out[o] = in[i]
				out[o+1] = in[i+1]
				i += 2
			}
		}
	}
	return out
}

func (c *CorrelatorContext) String() string {
	return fmt.Sprintf(
		"CorrelatorContext (%s)\n"+
			"  obs ID:             %d\n"+
			"  timesteps:          %d (%d provided)\n"+
			"  coarse channels:    %d (%d provided)\n"+
			"  common time range:  %d ms from unix %d ms\n"+
			"  floats per HDU:     %d\n",
		c.Version, c.Metafits.ObsID,
		c.NumTimesteps, len(c.ProvidedTimesteps),
		c.NumCoarseChans, len(c.ProvidedCoarseChans),
		c.CommonDurationMs, c.CommonStartUnixMs,
		c.Layout.FloatsPerHDU)
}
