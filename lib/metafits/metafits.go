/*package metafits reads MWA metafits files into an in-memory metadata
model: the observation's scheduling and pointing keys from the primary
header, and the per-input tile table from the TILEDATA extension. All the
derived structure an observation has regardless of which data files exist
- antennas, baselines, coarse channels, polarisation products - is built
here, so the data-file catalogs and the user-facing contexts only add what
the files themselves contribute.*/
package metafits

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MWATelescope/mwalib/lib/fits"
)

// Context is the parsed content of one metafits file. It is immutable once
// built, so it may be shared freely between goroutines.
type Context struct {
	Path    string
	Version MWAVersion

	// ObsID is the observation ID, which is also its scheduled start in
	// GPS seconds.
	ObsID uint32

	SchedStartGPSMs  uint64
	SchedEndGPSMs    uint64
	SchedStartUnixMs uint64
	SchedEndUnixMs   uint64
	SchedStartUTC    time.Time
	SchedDurationMs  uint64

	// QuackTimeMs is how much of the start of the observation the online
	// systems consider unusable; GoodTimeUnixMs is the first usable
	// moment.
	QuackTimeMs    uint64
	GoodTimeUnixMs uint64

	RATilePointingDeg  float64
	DecTilePointingDeg float64
	// The phase centre keys are absent from some metafits files, so these
	// are nil when not recorded.
	RAPhaseCenterDeg  *float64
	DecPhaseCenterDeg *float64
	AzimuthDeg        float64
	AltitudeDeg       float64

	Mode      string
	ObsName   string
	ProjectID string
	Creator   string

	GlobalAnalogueAttenDB float64
	Receivers             []int
	Delays                []int

	// Correlator settings as scheduled. A correlator context may override
	// these from the data files themselves.
	CorrFineChanWidthHz uint32
	CorrIntTimeMs       uint64
	NumScans            int

	NumRFInputs int
	RFInputs    []RFInput
	NumAnts     int
	Antennas    []Antenna
	NumAntPols  int

	NumBaselines int
	Baselines    []Baseline
	NumVisPols   int
	VisPols      []VisPol

	NumCoarseChans        int
	CoarseChans           []CoarseChan
	CoarseChanWidthHz     uint32
	ObsBandwidthHz        uint32
	CentreFreqHz          uint32
	NumFineChansPerCoarse int

	// channelList holds the raw receiver channel numbers until the
	// version is known and CoarseChans can be built.
	channelList []int
}

// New reads and derives everything from the named metafits file. If
// version is VersionNone, the version is inferred from the MODE key.
func New(path string, version MWAVersion) (*Context, error) {
	f, err := fits.Open(path)
	if err != nil { return nil, err }

	c := &Context{ Path: path }
	if err := c.readPrimary(f); err != nil {
		return nil, fmt.Errorf("metafits %s: %w", path, err)
	}

	if version == VersionNone {
		version, err = VersionFromMode(c.Mode)
		if err != nil {
			return nil, fmt.Errorf("metafits %s: %w", path, err)
		}
	}
	c.Version = version

	if err := c.readTileTable(f); err != nil { return nil, err }

	c.buildChannels()
	return c, nil
}

func (c *Context) readPrimary(f *fits.File) error {
	hd := f.HDUs[0].Header

	obsID, err := hd.Int("GPSTIME")
	if err != nil { return err }
	c.ObsID = uint32(obsID)
	c.SchedStartGPSMs = uint64(obsID) * 1000

	goodTime, err := hd.Float("GOODTIME")
	if err != nil { return err }
	c.GoodTimeUnixMs = uint64(goodTime * 1000)

	quack, err := hd.Float("QUACKTIM")
	if err != nil { return err }
	c.QuackTimeMs = uint64(quack * 1000)

	// The metafits records when the data becomes good; the schedule
	// started one quack time earlier.
	c.SchedStartUnixMs = c.GoodTimeUnixMs - c.QuackTimeMs

	exposure, err := hd.Int("EXPOSURE")
	if err != nil { return err }
	c.SchedDurationMs = uint64(exposure) * 1000
	c.SchedEndUnixMs = c.SchedStartUnixMs + c.SchedDurationMs
	c.SchedEndGPSMs = c.SchedStartGPSMs + c.SchedDurationMs

	dateObs, err := hd.Str("DATE-OBS")
	if err != nil { return err }
	c.SchedStartUTC, err = time.Parse("2006-01-02T15:04:05", dateObs)
	if err != nil {
		return fmt.Errorf("the DATE-OBS value '%s' is not a UTC "+
			"timestamp", dateObs)
	}

	if c.RATilePointingDeg, err = hd.Float("RA"); err != nil { return err }
	if c.DecTilePointingDeg, err = hd.Float("DEC"); err != nil { return err }
	if hd.Has("RAPHASE") {
		ra, err := hd.Float("RAPHASE")
		if err != nil { return err }
		c.RAPhaseCenterDeg = &ra
	}
	if hd.Has("DECPHASE") {
		dec, err := hd.Float("DECPHASE")
		if err != nil { return err }
		c.DecPhaseCenterDeg = &dec
	}
	if c.AzimuthDeg, err = hd.Float("AZIMUTH"); err != nil { return err }
	if c.AltitudeDeg, err = hd.Float("ALTITUDE"); err != nil { return err }

	if c.Mode, err = hd.Str("MODE"); err != nil { return err }
	if c.ObsName, err = hd.Str("FILENAME"); err != nil { return err }
	if c.ProjectID, err = hd.Str("PROJECT"); err != nil { return err }
	if c.Creator, err = hd.Str("CREATOR"); err != nil { return err }

	if c.GlobalAnalogueAttenDB, err = hd.Float("ATTEN_DB"); err != nil {
		return err
	}

	recvrs, err := hd.Str("RECVRS")
	if err != nil { return err }
	if c.Receivers, err = parseIntList(recvrs, "RECVRS"); err != nil {
		return err
	}
	delays, err := hd.Str("DELAYS")
	if err != nil { return err }
	if c.Delays, err = parseIntList(delays, "DELAYS"); err != nil {
		return err
	}

	fineChan, err := hd.Float("FINECHAN")
	if err != nil { return err }
	c.CorrFineChanWidthHz = uint32(fineChan * 1000)

	intTime, err := hd.Float("INTTIME")
	if err != nil { return err }
	c.CorrIntTimeMs = uint64(intTime * 1000)

	nScans, err := hd.Int("NSCANS")
	if err != nil { return err }
	c.NumScans = int(nScans)

	bandwidth, err := hd.Float("BANDWDTH")
	if err != nil { return err }
	c.ObsBandwidthHz = uint32(bandwidth*1e6 + 0.5)

	freqCent, err := hd.Float("FREQCENT")
	if err != nil { return err }
	c.CentreFreqHz = uint32(freqCent*1e6 + 0.5)

	channels, err := hd.LongStr("CHANNELS")
	if err != nil { return err }
	recChans, err := parseChannels(channels)
	if err != nil { return err }
	c.NumCoarseChans = len(recChans)
	c.CoarseChanWidthHz = c.ObsBandwidthHz / uint32(c.NumCoarseChans)
	// The CoarseChans slice needs the version, so it is filled in by
	// buildChannels once that is known.
	c.CoarseChans = []CoarseChan{}
	c.channelList = recChans

	nInputs, err := hd.Int("NINPUTS")
	if err != nil { return err }
	c.NumRFInputs = int(nInputs)
	return nil
}

func (c *Context) readTileTable(f *fits.File) error {
	i, err := f.HDUByName("TILEDATA")
	if err != nil { return err }
	tab, err := f.Table(i)
	if err != nil { return err }

	if tab.NumRows != c.NumRFInputs {
		return fmt.Errorf("metafits %s: NINPUTS says %d inputs, but the "+
			"tile table has %d rows", c.Path, c.NumRFInputs, tab.NumRows)
	}

	if c.RFInputs, err = readRFInputs(tab, c.Path); err != nil {
		return err
	}
	if c.Antennas, err = buildAntennas(c.RFInputs); err != nil {
		return fmt.Errorf("metafits %s: %w", c.Path, err)
	}

	c.NumAnts = len(c.Antennas)
	c.NumAntPols = 2
	c.NumBaselines = NumBaselinesFor(c.NumAnts)
	c.Baselines = buildBaselines(c.NumAnts)
	c.VisPols = buildVisPols()
	c.NumVisPols = len(c.VisPols)
	return nil
}

func (c *Context) buildChannels() {
	c.CoarseChans = BuildCoarseChans(
		c.Version, c.channelList, c.CoarseChanWidthHz)
	if c.CorrFineChanWidthHz > 0 {
		c.NumFineChansPerCoarse =
			int(c.CoarseChanWidthHz / c.CorrFineChanWidthHz)
	}
}

// GpsToUnixMs converts a GPS millisecond time to unix milliseconds using
// the observation's own (GPS, unix) anchor pair, so no leap-second table
// is needed.
func (c *Context) GpsToUnixMs(gpsMs uint64) uint64 {
	return c.SchedStartUnixMs + gpsMs - c.SchedStartGPSMs
}

// UnixToGpsMs is the inverse of GpsToUnixMs.
func (c *Context) UnixToGpsMs(unixMs uint64) uint64 {
	return c.SchedStartGPSMs + unixMs - c.SchedStartUnixMs
}

// TimestepsFor lists the observation's scheduled timesteps for a given
// version: correlator versions step at the correlator integration time,
// voltage versions at the capture system's fixed file interval.
func (c *Context) TimestepsFor(v MWAVersion) []TimeStep {
	stepMs := c.CorrIntTimeMs
	switch v {
	case VCSLegacyRecombined: stepMs = 1000
	case VCSMWAXv2: stepMs = 8000
	}
	if stepMs == 0 { return []TimeStep{} }

	// Voltage captures are aligned to whole GPS seconds.
	startGPS := c.SchedStartGPSMs
	if v.IsVoltage() { startGPS = (startGPS / 1000) * 1000 }
	return EnumerateTimesteps(startGPS, startGPS+c.SchedDurationMs,
		stepMs, c.SchedStartGPSMs, c.SchedStartUnixMs)
}

func parseIntList(s, key string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("the %s value '%s' is not a "+
				"comma-separated integer list", key, s)
		}
		out = append(out, n)
	}
	return out, nil
}
