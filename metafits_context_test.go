package mwalib

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/MWATelescope/mwalib/lib/mwatest"
)

func writeDefaultMetafits(t *testing.T, mode string) (string, mwatest.Obs) {
	t.Helper()
	o := mwatest.DefaultObs()
	o.Mode = mode
	path := filepath.Join(t.TempDir(), "test.metafits")
	if err := mwatest.WriteMetafits(path, o); err != nil {
		t.Fatalf("could not write the metafits file: %v", err)
	}
	return path, o
}

func TestNewMetafitsContext(t *testing.T) {
	path, _ := writeDefaultMetafits(t, "HW_LFILES")

	c, err := NewMetafitsContext(path, VersionNone)
	if err != nil { t.Fatalf("NewMetafitsContext failed: %v", err) }

	if c.Version != CorrLegacy {
		t.Errorf("Version = %s; expected legacy from the MODE key",
			c.Version)
	}
	if c.ObsID != 1101503312 || c.NumAnts != 2 || c.NumBaselines != 3 {
		t.Errorf("ObsID = %d, NumAnts = %d, NumBaselines = %d",
			c.ObsID, c.NumAnts, c.NumBaselines)
	}
	if c.NumTimesteps != 56 {
		t.Errorf("NumTimesteps = %d; expected 56", c.NumTimesteps)
	}
	if c.Timesteps[0].UnixMs != c.SchedStartUnixMs {
		t.Errorf("the first timestep is at %d; expected %d",
			c.Timesteps[0].UnixMs, c.SchedStartUnixMs)
	}

	s := c.String()
	for _, want := range []string{ "1101503312", "G0009", "baselines" } {
		if !strings.Contains(s, want) {
			t.Errorf("String() does not mention %s:\n%s", want, s)
		}
	}
}

func TestMetafitsContextExplicitVersion(t *testing.T) {
	// An explicit version overrides the MODE key: the same metafits,
	// viewed as a voltage observation, has 8-second timesteps.
	path, _ := writeDefaultMetafits(t, "HW_LFILES")

	c, err := NewMetafitsContext(path, VCSMWAXv2)
	if err != nil { t.Fatalf("NewMetafitsContext failed: %v", err) }
	if c.Version != VCSMWAXv2 {
		t.Errorf("Version = %s; expected the explicit version", c.Version)
	}
	if c.NumTimesteps != 14 {
		t.Errorf("NumTimesteps = %d; expected 14 (112 s at 8 s)",
			c.NumTimesteps)
	}
}
