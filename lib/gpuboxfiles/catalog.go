/*package gpuboxfiles catalogs the visibility files supplied for a
correlator observation: it works out which correlator generation wrote
them, groups them into batches, validates every file's headers and HDU
geometry against the observation's metadata, and indexes every integration
so that a (time, coarse channel) pair maps straight to one HDU of one
file. Building the catalog reads only headers; no visibility data is
touched until a caller asks for it.*/
package gpuboxfiles

import (
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/MWATelescope/mwalib/lib/fits"
	"github.com/MWATelescope/mwalib/lib/layout"
	"github.com/MWATelescope/mwalib/lib/metafits"
)

var (
	ErrNoFiles = errors.New(
		"gpuboxfiles: no visibility files were supplied")
	ErrMixture = errors.New(
		"gpuboxfiles: the files come from more than one correlator " +
			"generation")
	ErrBatchMissing = errors.New(
		"gpuboxfiles: the batch numbers are not contiguous from 0")
	ErrUnevenBatches = errors.New(
		"gpuboxfiles: the batches do not all hold the same number of files")
	ErrDuplicateFile = errors.New(
		"gpuboxfiles: two files cover the same channel and batch")
	ErrObsIDMismatch = errors.New(
		"gpuboxfiles: a file's OBSID does not match the metafits")
	ErrCorrVersion = errors.New(
		"gpuboxfiles: a file's CORR_VER key does not match its name")
	ErrUnexpectedHDUSize = errors.New(
		"gpuboxfiles: a visibility HDU does not have the dimensions the " +
			"observation requires")
	ErrNoDataHDUs = errors.New(
		"gpuboxfiles: a visibility file holds no data HDUs")
)

// Slot locates one integration of one coarse channel: an HDU index within
// one cataloged file. For MWAX files, the weights for the integration are
// at HDU + 1.
type Slot struct {
	File int
	HDU  int
}

// File is one cataloged visibility file.
type File struct {
	Path string
	// Channel is the filename channel: gpubox number (legacy) or
	// receiver channel number (MWAX).
	Channel int
	Batch   int
}

// Catalog is the validated index over a set of visibility files.
type Catalog struct {
	Version metafits.MWAVersion
	Files   []File
	// Batches lists file indices per batch number.
	Batches [][]int
	// TimeMap maps unix milliseconds, then filename channel, to the HDU
	// holding that integration.
	TimeMap map[uint64]map[int]Slot
	// ChanIDs is the sorted set of filename channels with data.
	ChanIDs []int
	// StartUnixMs and EndUnixMs bound the common time range: the span of
	// integrations present for every provided channel. EndUnixMs is
	// exclusive.
	StartUnixMs uint64
	EndUnixMs   uint64
	// DurationMs is EndUnixMs - StartUnixMs, 0 when there is no common
	// range.
	DurationMs uint64
}

// New catalogs and validates the given visibility files against the
// observation's metadata.
func New(paths []string, m *metafits.Context) (*Catalog, error) {
	if len(paths) == 0 { return nil, ErrNoFiles }

	c := &Catalog{ TimeMap: map[uint64]map[int]Slot{} }
	for _, path := range paths {
		p, err := parseFilename(path)
		if err != nil { return nil, err }
		if c.Version == metafits.VersionNone {
			c.Version = p.version
		} else if c.Version != p.version {
			return nil, fmt.Errorf("%w: '%s' is %s, but earlier files "+
				"are %s", ErrMixture, path, p.version, c.Version)
		}
		c.Files = append(c.Files, File{
			Path: path, Channel: p.channel, Batch: p.batch,
		})
	}

	if err := c.buildBatches(); err != nil { return nil, err }

	lay := layout.ForCorrelator(m, c.Version)
	for i := range c.Files {
		if err := c.scanFile(i, m, lay); err != nil { return nil, err }
	}

	c.buildChanIDs()
	c.determineObsTimes(m.CorrIntTimeMs)
	return c, nil
}

// buildBatches groups files by batch number and checks that batches are
// contiguous from 0 and evenly filled.
func (c *Catalog) buildBatches() error {
	maxBatch := 0
	for _, f := range c.Files {
		if f.Batch > maxBatch { maxBatch = f.Batch }
	}

	c.Batches = make([][]int, maxBatch+1)
	for i, f := range c.Files {
		c.Batches[f.Batch] = append(c.Batches[f.Batch], i)
	}

	for b, files := range c.Batches {
		if len(files) == 0 {
			return fmt.Errorf("%w: batch %d has no files, but batch %d "+
				"exists", ErrBatchMissing, b, maxBatch)
		}
		if len(files) != len(c.Batches[0]) {
			return fmt.Errorf("%w: batch 0 has %d files, but batch %d "+
				"has %d", ErrUnevenBatches, len(c.Batches[0]), b,
				len(files))
		}
		seen := map[int]bool{}
		for _, i := range files {
			if seen[c.Files[i].Channel] {
				return fmt.Errorf("%w: channel %d appears twice in "+
					"batch %d", ErrDuplicateFile, c.Files[i].Channel, b)
			}
			seen[c.Files[i].Channel] = true
		}
		// Keep each batch's files in channel order.
		sort.Slice(files, func(x, y int) bool {
			return c.Files[files[x]].Channel < c.Files[files[y]].Channel
		})
	}
	return nil
}

// scanFile opens one file's headers, validates them, and adds its
// integrations to the time map.
func (c *Catalog) scanFile(i int, m *metafits.Context, lay layout.Correlator) error {
	f := c.Files[i]
	ff, err := fits.Open(f.Path)
	if err != nil { return err }

	primary := ff.HDUs[0].Header
	obsID, err := primary.Int("OBSID")
	if err != nil { return fmt.Errorf("%s: %w", f.Path, err) }
	if uint32(obsID) != m.ObsID {
		return fmt.Errorf("%w: '%s' has OBSID %d, but the metafits is "+
			"for %d", ErrObsIDMismatch, f.Path, obsID, m.ObsID)
	}

	// MWAX files declare their correlator version; legacy files predate
	// the key.
	corrVer, err := primary.Int("CORR_VER")
	switch {
	case c.Version == metafits.CorrMWAXv2 && err != nil:
		return fmt.Errorf("%w: '%s' has no CORR_VER key", ErrCorrVersion,
			f.Path)
	case c.Version == metafits.CorrMWAXv2 && corrVer != 2:
		return fmt.Errorf("%w: '%s' has CORR_VER %d; expected 2",
			ErrCorrVersion, f.Path, corrVer)
	case c.Version == metafits.CorrLegacy && err == nil:
		return fmt.Errorf("%w: '%s' has CORR_VER %d, but its name says "+
			"it is a legacy file", ErrCorrVersion, f.Path, corrVer)
	}

	// Data HDUs follow the primary HDU; MWAX interleaves a weights HDU
	// after each one.
	step := 1
	if c.Version == metafits.CorrMWAXv2 { step = 2 }

	numData := 0
	for h := 1; h < len(ff.HDUs); h += step {
		hdu := ff.HDUs[h]
		if len(hdu.Axes) != 2 || hdu.Axes[0] != lay.NAxis1 ||
			hdu.Axes[1] != lay.NAxis2 {
			return fmt.Errorf("%w: '%s' HDU %d is %v; the observation "+
				"needs %d x %d", ErrUnexpectedHDUSize, f.Path, h,
				hdu.Axes, lay.NAxis1, lay.NAxis2)
		}

		t, err := hduTime(hdu.Header)
		if err != nil { return fmt.Errorf("%s: HDU %d: %w", f.Path, h, err) }
		if c.TimeMap[t] == nil { c.TimeMap[t] = map[int]Slot{} }
		if _, dup := c.TimeMap[t][f.Channel]; dup {
			return fmt.Errorf("%w: channel %d at %d ms appears in two "+
				"files", ErrDuplicateFile, f.Channel, t)
		}
		c.TimeMap[t][f.Channel] = Slot{ File: i, HDU: h }
		numData++
	}
	if numData == 0 {
		return fmt.Errorf("%w: '%s'", ErrNoDataHDUs, f.Path)
	}
	return nil
}

// hduTime reads an integration's start time from its TIME and MILLITIM
// keys.
func hduTime(hd *fits.Header) (uint64, error) {
	sec, err := hd.Int("TIME")
	if err != nil { return 0, err }
	milli, err := hd.Int("MILLITIM")
	if err != nil { return 0, err }
	return uint64(sec)*1000 + uint64(milli), nil
}

func (c *Catalog) buildChanIDs() {
	seen := map[int]bool{}
	for _, f := range c.Files {
		if !seen[f.Channel] {
			seen[f.Channel] = true
			c.ChanIDs = append(c.ChanIDs, f.Channel)
		}
	}
	sort.Ints(c.ChanIDs)
}

// determineObsTimes finds the common time range: the integrations present
// for every provided channel. Integrations outside it (a channel that
// started late, or a truncated final batch) are still readable, but they
// are excluded from the catalog's start, end and duration.
func (c *Catalog) determineObsTimes(intTimeMs uint64) {
	common := []uint64{}
	for t, chans := range c.TimeMap {
		if len(chans) == len(c.ChanIDs) { common = append(common, t) }
	}
	if len(common) == 0 {
		log.Warnf("No integration is present for all %d channels; the "+
			"common time range is empty.", len(c.ChanIDs))
		return
	}
	sort.Slice(common, func(i, j int) bool { return common[i] < common[j] })

	c.StartUnixMs = common[0]
	c.EndUnixMs = common[len(common)-1] + intTimeMs
	c.DurationMs = c.EndUnixMs - c.StartUnixMs

	if len(common) != len(c.TimeMap) {
		log.Warnf("%d integrations fall outside the common time range "+
			"and were trimmed from it.", len(c.TimeMap)-len(common))
	}
}

// Lookup returns the location of one integration of one channel, or
// false if no file provides it.
func (c *Catalog) Lookup(unixMs uint64, chanID int) (Slot, bool) {
	chans, ok := c.TimeMap[unixMs]
	if !ok { return Slot{}, false }
	s, ok := chans[chanID]
	return s, ok
}

// Times returns every integration time in the catalog, sorted.
func (c *Catalog) Times() []uint64 {
	out := make([]uint64, 0, len(c.TimeMap))
	for t := range c.TimeMap { out = append(out, t) }
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
