package mwalib

import (
	"fmt"
	"os"

	"github.com/MWATelescope/mwalib/lib/layout"
	"github.com/MWATelescope/mwalib/lib/metafits"
	"github.com/MWATelescope/mwalib/lib/voltfiles"
)

// VoltageContext is an observation's metadata plus a validated set of
// voltage files. One timestep is one file interval: a second for the
// legacy capture system, eight seconds for MWAX.
type VoltageContext struct {
	Metafits *metafits.Context
	Version  MWAVersion
	Geometry layout.Voltage

	Timesteps    []metafits.TimeStep
	NumTimesteps int
	// ProvidedTimesteps indexes the timesteps with files behind them.
	ProvidedTimesteps []int

	CoarseChans    []metafits.CoarseChan
	NumCoarseChans int
	// ProvidedCoarseChans indexes the coarse channels with files.
	ProvidedCoarseChans []int

	// The span of the supplied files. EndGPSMs is exclusive.
	StartGPSMs uint64
	EndGPSMs   uint64
	DurationMs uint64

	catalog *voltfiles.Catalog
}

// NewVoltageContext reads a metafits file and catalogs the given voltage
// files against it.
func NewVoltageContext(metafitsPath string, voltagePaths []string) (*VoltageContext, error) {
	m, err := metafits.New(metafitsPath, metafits.VersionNone)
	if err != nil { return nil, err }

	cat, err := voltfiles.New(voltagePaths, m)
	if err != nil { return nil, err }
	if m.Version != cat.Version {
		return nil, fmt.Errorf("%w: the metafits says %s, the files say "+
			"%s", ErrVersionConflict, m.Version, cat.Version)
	}

	c := &VoltageContext{
		Metafits: m,
		Version:  cat.Version,
		Geometry: layout.ForVoltage(m, cat.Version),
		catalog:  cat,
	}

	dataGPSMs := []uint64{}
	for _, t := range cat.Times() { dataGPSMs = append(dataGPSMs, t*1000) }
	c.Timesteps = mergeTimesteps(m.TimestepsFor(cat.Version), dataGPSMs,
		c.Geometry.TimestepDurationMs, m)
	c.NumTimesteps = len(c.Timesteps)
	for i, ts := range c.Timesteps {
		if _, ok := cat.TimeMap[ts.GPSMs/1000]; ok {
			c.ProvidedTimesteps = append(c.ProvidedTimesteps, i)
		}
	}

	provided := map[int]bool{}
	for _, id := range cat.ChanIDs { provided[id] = true }
	c.CoarseChans = m.CoarseChans
	c.NumCoarseChans = len(c.CoarseChans)
	for i, ch := range c.CoarseChans {
		if provided[ch.RecChanNumber] {
			c.ProvidedCoarseChans = append(c.ProvidedCoarseChans, i)
		}
	}

	c.StartGPSMs = cat.StartGPSMs
	c.EndGPSMs = cat.EndGPSMs
	c.DurationMs = cat.DurationMs
	return c, nil
}

// locate validates a (timestep, coarse channel) pair and finds its file.
func (c *VoltageContext) locate(tsIdx, chanIdx int) (voltfiles.File, error) {
	if tsIdx < 0 || tsIdx >= c.NumTimesteps {
		return voltfiles.File{}, fmt.Errorf("%w: %d of %d",
			ErrInvalidTimestepIndex, tsIdx, c.NumTimesteps)
	}
	if chanIdx < 0 || chanIdx >= c.NumCoarseChans {
		return voltfiles.File{}, fmt.Errorf("%w: %d of %d",
			ErrInvalidCoarseChanIndex, chanIdx, c.NumCoarseChans)
	}
	f, ok := c.catalog.Lookup(c.Timesteps[tsIdx].GPSMs/1000,
		c.CoarseChans[chanIdx].RecChanNumber)
	if !ok {
		return voltfiles.File{}, fmt.Errorf("%w: timestep %d, coarse "+
			"channel %d", ErrNoData, tsIdx, chanIdx)
	}
	return f, nil
}

// ReadFile returns the voltage data of one whole timestep of one coarse
// channel: every voltage block of one file, with the header and delay
// block stripped. The returned buffer is freshly allocated on every call.
func (c *VoltageContext) ReadFile(tsIdx, chanIdx int) ([]byte, error) {
	f, err := c.locate(tsIdx, chanIdx)
	if err != nil { return nil, err }

	size := c.Geometry.BlocksPerTimestep * c.Geometry.BlockSizeBytes
	return c.readAt(f.Path, c.Geometry.DataOffset(), size)
}

// ReadSecond returns numSeconds of voltage data for one coarse channel,
// starting at an absolute GPS second. The span may cross file boundaries,
// but every second of it must be covered by a file.
func (c *VoltageContext) ReadSecond(gpsSecondStart uint64, numSeconds int, chanIdx int) ([]byte, error) {
	if numSeconds <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSecondCount, numSeconds)
	}
	if chanIdx < 0 || chanIdx >= c.NumCoarseChans {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidCoarseChanIndex,
			chanIdx, c.NumCoarseChans)
	}

	startGPS := c.StartGPSMs / 1000
	endGPS := c.EndGPSMs / 1000
	if gpsSecondStart < startGPS ||
		gpsSecondStart+uint64(numSeconds) > endGPS {
		return nil, fmt.Errorf("%w: [%d, %d) is outside the files' "+
			"[%d, %d)", ErrInvalidGpsSecond, gpsSecondStart,
			gpsSecondStart+uint64(numSeconds), startGPS, endGPS)
	}

	interval := c.Geometry.TimestepDurationMs / 1000
	bytesPerSecond := c.Geometry.BlocksPerSecond * c.Geometry.BlockSizeBytes
	out := make([]byte, 0, int64(numSeconds)*bytesPerSecond)

	for s := uint64(0); s < uint64(numSeconds); s++ {
		sec := gpsSecondStart + s
		// The file holding this second starts at the interval boundary
		// at or before it.
		fileGPS := startGPS + ((sec - startGPS) / interval) * interval
		f, ok := c.catalog.Lookup(fileGPS,
			c.CoarseChans[chanIdx].RecChanNumber)
		if !ok {
			return nil, fmt.Errorf("%w: GPS second %d, coarse channel "+
				"%d", ErrNoData, sec, chanIdx)
		}

		offset := c.Geometry.DataOffset() +
			int64(sec-fileGPS)*bytesPerSecond
		chunk, err := c.readAt(f.Path, offset, bytesPerSecond)
		if err != nil { return nil, err }
		out = append(out, chunk...)
	}
	return out, nil
}

// readAt opens a file, reads size bytes at offset, and closes it again.
func (c *VoltageContext) readAt(path string, offset, size int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil { return nil, err }
	defer f.Close()

	out := make([]byte, size)
	n, err := f.ReadAt(out, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s' gave %d bytes of %d at offset "+
			"%d: %v", ErrShortRead, path, n, size, offset, err)
	}
	return out, nil
}

func (c *VoltageContext) String() string {
	return fmt.Sprintf(
		"VoltageContext (%s)\n"+
			"  obs ID:            %d\n"+
			"  timesteps:         %d (%d provided)\n"+
			"  coarse channels:   %d (%d provided)\n"+
			"  data span:         %d ms from GPS %d ms\n"+
			"  voltage blocks:    %d x %d bytes per timestep\n",
		c.Version, c.Metafits.ObsID,
		c.NumTimesteps, len(c.ProvidedTimesteps),
		c.NumCoarseChans, len(c.ProvidedCoarseChans),
		c.DurationMs, c.StartGPSMs,
		c.Geometry.BlocksPerTimestep, c.Geometry.BlockSizeBytes)
}
