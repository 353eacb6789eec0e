package mwalib

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MWATelescope/mwalib/lib/eq"
	"github.com/MWATelescope/mwalib/lib/layout"
	"github.com/MWATelescope/mwalib/lib/metafits"
	"github.com/MWATelescope/mwalib/lib/mwatest"
)

// legacyVoltFixture writes a metafits and legacy .dat files for receiver
// channels 123 and 124 over numSeconds seconds. Block b of the file for
// second s is marked with byte(s*10 + b) at its first byte.
func legacyVoltFixture(t *testing.T, numSeconds int) (string, []string, layout.Voltage) {
	t.Helper()
	dir := t.TempDir()
	o := mwatest.DefaultObs()
	o.Mode = "VOLTAGE_START"

	metaPath := filepath.Join(dir, "test.metafits")
	if err := mwatest.WriteMetafits(metaPath, o); err != nil {
		t.Fatalf("could not write the metafits file: %v", err)
	}
	m, err := metafits.New(metaPath, metafits.VersionNone)
	if err != nil { t.Fatalf("metafits.New failed: %v", err) }
	g := layout.ForVoltage(m, VCSLegacyRecombined)

	paths := []string{}
	for s := 0; s < numSeconds; s++ {
		s := s
		for _, ch := range []int{ 123, 124 } {
			path := filepath.Join(dir, fmt.Sprintf(
				"1101503312_%d_ch%d.dat", 1101503312+s, ch))
			err := mwatest.WriteVoltage(path, g, func(b int64) byte {
				return byte(s*10 + int(b))
			})
			if err != nil { t.Fatalf("could not write a .dat file: %v", err) }
			paths = append(paths, path)
		}
	}
	return metaPath, paths, g
}

func TestNewVoltageContext(t *testing.T) {
	metaPath, paths, g := legacyVoltFixture(t, 3)

	c, err := NewVoltageContext(metaPath, paths)
	if err != nil { t.Fatalf("NewVoltageContext failed: %v", err) }

	if c.Version != VCSLegacyRecombined {
		t.Errorf("Version = %s; expected legacy VCS", c.Version)
	}
	// The schedule runs 112 s; the files cover the first 3.
	if c.NumTimesteps != 112 {
		t.Errorf("NumTimesteps = %d; expected 112", c.NumTimesteps)
	}
	if len(c.ProvidedTimesteps) != 3 || c.ProvidedTimesteps[0] != 0 {
		t.Errorf("ProvidedTimesteps = %v; expected [0 1 2]",
			c.ProvidedTimesteps)
	}
	// Receiver channels 123 and 124 are indices 14 and 15 of 109..132.
	if len(c.ProvidedCoarseChans) != 2 ||
		c.ProvidedCoarseChans[0] != 14 || c.ProvidedCoarseChans[1] != 15 {
		t.Errorf("ProvidedCoarseChans = %v; expected [14 15]",
			c.ProvidedCoarseChans)
	}
	if c.StartGPSMs != 1101503312000 || c.DurationMs != 3000 {
		t.Errorf("span = %d ms from %d", c.DurationMs, c.StartGPSMs)
	}
	if c.Geometry.ExpectedFileSize != g.ExpectedFileSize {
		t.Errorf("the context derived a different geometry")
	}

	s := c.String()
	if !strings.Contains(s, "1101503312") {
		t.Errorf("String() does not mention the obs ID:\n%s", s)
	}
}

func TestVoltageReadFile(t *testing.T) {
	metaPath, paths, g := legacyVoltFixture(t, 3)
	c, err := NewVoltageContext(metaPath, paths)
	if err != nil { t.Fatalf("NewVoltageContext failed: %v", err) }

	// Timestep 1, receiver channel 124.
	data, err := c.ReadFile(1, 15)
	if err != nil { t.Fatalf("ReadFile failed: %v", err) }
	if int64(len(data)) != g.BlocksPerTimestep*g.BlockSizeBytes {
		t.Fatalf("len(data) = %d; expected %d", len(data),
			g.BlocksPerTimestep*g.BlockSizeBytes)
	}
	// The second 1 file's only block is marked 10.
	if data[0] != 10 {
		t.Errorf("data[0] = %d; expected the second-1 marker 10", data[0])
	}
	// Everything else in a sparse fixture is zero.
	if data[1] != 0 || data[len(data)-1] != 0 {
		t.Errorf("the fixture holes are not zero")
	}
}

func TestVoltageReadSecond(t *testing.T) {
	metaPath, paths, g := legacyVoltFixture(t, 3)
	c, err := NewVoltageContext(metaPath, paths)
	if err != nil { t.Fatalf("NewVoltageContext failed: %v", err) }

	// Two seconds spanning two legacy files.
	data, err := c.ReadSecond(1101503313, 2, 14)
	if err != nil { t.Fatalf("ReadSecond failed: %v", err) }

	bytesPerSecond := g.BlocksPerSecond * g.BlockSizeBytes
	if int64(len(data)) != 2*bytesPerSecond {
		t.Fatalf("len(data) = %d; expected %d", len(data),
			2*bytesPerSecond)
	}
	if data[0] != 10 {
		t.Errorf("data[0] = %d; expected the second-1 marker 10", data[0])
	}
	if data[bytesPerSecond] != 20 {
		t.Errorf("data at the second boundary = %d; expected the "+
			"second-2 marker 20", data[bytesPerSecond])
	}
}

func TestVoltageReadFileMatchesReadSecond(t *testing.T) {
	// A legacy file spans exactly one second, so the two read paths must
	// return identical bytes.
	metaPath, paths, _ := legacyVoltFixture(t, 3)
	c, err := NewVoltageContext(metaPath, paths)
	if err != nil { t.Fatalf("NewVoltageContext failed: %v", err) }

	byFile, err := c.ReadFile(2, 14)
	if err != nil { t.Fatalf("ReadFile failed: %v", err) }
	bySecond, err := c.ReadSecond(1101503314, 1, 14)
	if err != nil { t.Fatalf("ReadSecond failed: %v", err) }
	if !eq.Bytes(byFile, bySecond) {
		t.Errorf("ReadFile and ReadSecond disagree on the same second")
	}
}

func TestVoltageReadErrors(t *testing.T) {
	metaPath, paths, _ := legacyVoltFixture(t, 2)
	c, err := NewVoltageContext(metaPath, paths)
	if err != nil { t.Fatalf("NewVoltageContext failed: %v", err) }

	if _, err := c.ReadFile(200, 14); !errors.Is(err, ErrInvalidTimestepIndex) {
		t.Errorf("timestep 200 gave %v", err)
	}
	if _, err := c.ReadFile(0, 99); !errors.Is(err, ErrInvalidCoarseChanIndex) {
		t.Errorf("channel 99 gave %v", err)
	}
	// Channel index 0 (receiver channel 109) has no files.
	if _, err := c.ReadFile(0, 0); !errors.Is(err, ErrNoData) {
		t.Errorf("an unprovided channel gave %v", err)
	}
	// Timestep 10 is scheduled but has no file.
	if _, err := c.ReadFile(10, 14); !errors.Is(err, ErrNoData) {
		t.Errorf("an unprovided timestep gave %v", err)
	}

	if _, err := c.ReadSecond(1101503312, 0, 14); !errors.Is(err, ErrInvalidSecondCount) {
		t.Errorf("0 seconds gave %v", err)
	}
	if _, err := c.ReadSecond(1101503311, 1, 14); !errors.Is(err, ErrInvalidGpsSecond) {
		t.Errorf("a second before the data gave %v", err)
	}
	if _, err := c.ReadSecond(1101503313, 2, 14); !errors.Is(err, ErrInvalidGpsSecond) {
		t.Errorf("a span past the data gave %v", err)
	}
}

func TestMWAXVoltageReadSecond(t *testing.T) {
	dir := t.TempDir()
	o := mwatest.DefaultObs()
	o.Mode = "MWAX_VCS"

	metaPath := filepath.Join(dir, "test.metafits")
	if err := mwatest.WriteMetafits(metaPath, o); err != nil {
		t.Fatalf("could not write the metafits file: %v", err)
	}
	m, err := metafits.New(metaPath, metafits.VersionNone)
	if err != nil { t.Fatalf("metafits.New failed: %v", err) }
	g := layout.ForVoltage(m, VCSMWAXv2)

	// Two 8-second files for receiver channel 123, blocks marked with
	// their block number.
	paths := []string{}
	for _, gps := range []uint64{ 1101503312, 1101503320 } {
		path := filepath.Join(dir,
			fmt.Sprintf("1101503312_%d_123.sub", gps))
		err := mwatest.WriteVoltage(path, g, func(b int64) byte {
			return byte(b)
		})
		if err != nil { t.Fatalf("could not write a .sub file: %v", err) }
		paths = append(paths, path)
	}

	c, err := NewVoltageContext(metaPath, paths)
	if err != nil { t.Fatalf("NewVoltageContext failed: %v", err) }

	// Seconds 7 and 8 of the capture: the last second of the first file
	// and the first second of the second file.
	data, err := c.ReadSecond(1101503319, 2, 14)
	if err != nil { t.Fatalf("ReadSecond failed: %v", err) }

	bytesPerSecond := g.BlocksPerSecond * g.BlockSizeBytes
	if int64(len(data)) != 2*bytesPerSecond {
		t.Fatalf("len(data) = %d; expected %d", len(data),
			2*bytesPerSecond)
	}
	// Second 7 starts at block 7 * 20 = 140 of the first file.
	if data[0] != 140 {
		t.Errorf("data[0] = %d; expected the block-140 marker", data[0])
	}
	// The second block of that second is block 141.
	if data[g.BlockSizeBytes] != 141 {
		t.Errorf("the second block's marker is %d; expected 141",
			data[g.BlockSizeBytes])
	}
	// Second 8 is block 0 of the second file.
	if data[bytesPerSecond] != 0 {
		t.Errorf("the second file's marker is %d; expected 0",
			data[bytesPerSecond])
	}
	// No header or delay-block bytes may leak into the data.
	if int64(len(data)) != 2*20*512000 {
		t.Errorf("unexpected data size %d", len(data))
	}
}
