package mwalib

import (
	"fmt"

	"github.com/MWATelescope/mwalib/lib/metafits"
)

// MetafitsContext presents an observation's metadata without any data
// files: everything the metafits knows, plus the timestep and coarse
// channel axes the observation would have under a given instrument
// generation.
type MetafitsContext struct {
	*metafits.Context

	// Timesteps is the observation's scheduled timestep list for the
	// context's version.
	Timesteps    []metafits.TimeStep
	NumTimesteps int
}

// NewMetafitsContext reads a metafits file alone. If version is
// VersionNone, the generation is inferred from the metafits MODE key.
func NewMetafitsContext(metafitsPath string, version MWAVersion) (*MetafitsContext, error) {
	m, err := metafits.New(metafitsPath, version)
	if err != nil { return nil, err }

	c := &MetafitsContext{ Context: m }
	c.Timesteps = m.TimestepsFor(m.Version)
	c.NumTimesteps = len(c.Timesteps)
	return c, nil
}

func (c *MetafitsContext) String() string {
	return fmt.Sprintf(
		"MetafitsContext (%s)\n"+
			"  obs ID:            %d\n"+
			"  obs name:          %s\n"+
			"  project:           %s\n"+
			"  scheduled (UTC):   %s + %d s\n"+
			"  antennas:          %d (%d baselines)\n"+
			"  coarse channels:   %d x %.2f MHz\n"+
			"  fine channels:     %d x %.1f kHz per coarse channel\n"+
			"  timesteps:         %d\n",
		c.Version, c.ObsID, c.ObsName, c.ProjectID,
		c.SchedStartUTC.Format("2006-01-02 15:04:05"),
		c.SchedDurationMs/1000,
		c.NumAnts, c.NumBaselines,
		c.NumCoarseChans, float64(c.CoarseChanWidthHz)/1e6,
		c.NumFineChansPerCoarse, float64(c.CorrFineChanWidthHz)/1e3,
		c.NumTimesteps)
}
