/*package voltfiles catalogs the files supplied for a voltage-capture
observation. Voltage files carry no internal metadata to speak of, so the
catalog leans on their names and sizes: the name fixes the start time and
coarse channel, and the size must match the observation's geometry byte
for byte. The catalog refuses gaps in time, uneven channel coverage, and
anything whose size disagrees with the metadata, so that reads can seek
by pure arithmetic afterwards.*/
package voltfiles

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/MWATelescope/mwalib/lib/layout"
	"github.com/MWATelescope/mwalib/lib/metafits"
)

var (
	ErrNoFiles = errors.New(
		"voltfiles: no voltage files were supplied")
	ErrMixture = errors.New(
		"voltfiles: the files come from more than one capture system " +
			"generation")
	ErrObsIDMismatch = errors.New(
		"voltfiles: a file's observation ID does not match the metafits")
	ErrDuplicateFile = errors.New(
		"voltfiles: two files cover the same GPS time and channel")
	ErrGpsTimeMissing = errors.New(
		"voltfiles: the files do not cover a contiguous span of GPS time")
	ErrUnevenChannels = errors.New(
		"voltfiles: the GPS times do not all have the same channels")
	ErrUnexpectedFileSize = errors.New(
		"voltfiles: a file's size does not match the observation's " +
			"geometry")
)

// File is one cataloged voltage file.
type File struct {
	Path string
	// GPSSecond is the file's start time from its name.
	GPSSecond uint64
	// Channel is the receiver coarse channel number from its name.
	Channel int
}

// Catalog is the validated index over a set of voltage files.
type Catalog struct {
	Version metafits.MWAVersion
	Files   []File
	// TimeMap maps a file-start GPS second, then receiver channel, to an
	// index into Files.
	TimeMap map[uint64]map[int]int
	// ChanIDs is the sorted set of receiver channels with data.
	ChanIDs []int
	// StartGPSMs and EndGPSMs bound the data (EndGPSMs exclusive).
	StartGPSMs uint64
	EndGPSMs   uint64
	DurationMs uint64
}

// New catalogs and validates the given voltage files against the
// observation's metadata. Every file's size is checked against the
// version's geometry.
func New(paths []string, m *metafits.Context) (*Catalog, error) {
	if len(paths) == 0 { return nil, ErrNoFiles }

	c := &Catalog{ TimeMap: map[uint64]map[int]int{} }
	for _, path := range paths {
		p, err := parseFilename(path)
		if err != nil { return nil, err }
		if c.Version == metafits.VersionNone {
			c.Version = p.version
		} else if c.Version != p.version {
			return nil, fmt.Errorf("%w: '%s' is %s, but earlier files "+
				"are %s", ErrMixture, path, p.version, c.Version)
		}
		if p.obsID != m.ObsID {
			return nil, fmt.Errorf("%w: '%s' is for observation %d, but "+
				"the metafits is for %d", ErrObsIDMismatch, path,
				p.obsID, m.ObsID)
		}

		i := len(c.Files)
		c.Files = append(c.Files, File{
			Path: path, GPSSecond: p.gpsSecond, Channel: p.channel,
		})
		if c.TimeMap[p.gpsSecond] == nil {
			c.TimeMap[p.gpsSecond] = map[int]int{}
		}
		if _, dup := c.TimeMap[p.gpsSecond][p.channel]; dup {
			return nil, fmt.Errorf("%w: channel %d at GPS second %d",
				ErrDuplicateFile, p.channel, p.gpsSecond)
		}
		c.TimeMap[p.gpsSecond][p.channel] = i
	}

	g := layout.ForVoltage(m, c.Version)
	if err := c.checkCoverage(g); err != nil { return nil, err }
	if err := c.checkSizes(g); err != nil { return nil, err }
	return c, nil
}

// checkCoverage validates that the files tile GPS time with no gaps and
// with the same channel set at every time.
func (c *Catalog) checkCoverage(g layout.Voltage) error {
	times := make([]uint64, 0, len(c.TimeMap))
	for t := range c.TimeMap { times = append(times, t) }
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	interval := g.TimestepDurationMs / 1000
	for i := 1; i < len(times); i++ {
		if times[i] != times[i-1]+interval {
			return fmt.Errorf("%w: expected a file at GPS second %d, "+
				"but the next file starts at %d", ErrGpsTimeMissing,
				times[i-1]+interval, times[i])
		}
	}

	first := c.TimeMap[times[0]]
	for _, t := range times {
		if len(c.TimeMap[t]) != len(first) {
			return fmt.Errorf("%w: GPS second %d has %d channels, but "+
				"%d has %d", ErrUnevenChannels, t, len(c.TimeMap[t]),
				times[0], len(first))
		}
		for ch := range c.TimeMap[t] {
			if _, ok := first[ch]; !ok {
				return fmt.Errorf("%w: channel %d appears at GPS "+
					"second %d but not at %d", ErrUnevenChannels, ch,
					t, times[0])
			}
		}
	}

	for ch := range first { c.ChanIDs = append(c.ChanIDs, ch) }
	sort.Ints(c.ChanIDs)

	c.StartGPSMs = times[0] * 1000
	c.EndGPSMs = (times[len(times)-1] + interval) * 1000
	c.DurationMs = c.EndGPSMs - c.StartGPSMs
	return nil
}

// checkSizes stats every file against the geometry's expected size.
func (c *Catalog) checkSizes(g layout.Voltage) error {
	for _, f := range c.Files {
		info, err := os.Stat(f.Path)
		if err != nil { return err }
		if info.Size() != g.ExpectedFileSize {
			return fmt.Errorf("%w: '%s' is %d bytes; the metadata "+
				"requires %d", ErrUnexpectedFileSize, f.Path,
				info.Size(), g.ExpectedFileSize)
		}
	}
	return nil
}

// Lookup returns the file covering one GPS second and channel, or false
// if no file provides it.
func (c *Catalog) Lookup(gpsSecond uint64, chanID int) (File, bool) {
	chans, ok := c.TimeMap[gpsSecond]
	if !ok { return File{}, false }
	i, ok := chans[chanID]
	if !ok { return File{}, false }
	return c.Files[i], true
}

// Times returns every file-start GPS second in the catalog, sorted.
func (c *Catalog) Times() []uint64 {
	out := make([]uint64, 0, len(c.TimeMap))
	for t := range c.TimeMap { out = append(out, t) }
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
