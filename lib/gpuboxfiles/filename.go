package gpuboxfiles

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/MWATelescope/mwalib/lib/metafits"
)

var (
	ErrUnrecognised = errors.New(
		"gpuboxfiles: a file name does not match any visibility file " +
			"naming convention")
	ErrMixedKinds = errors.New(
		"gpuboxfiles: a voltage-capture file was given to a correlator " +
			"context")
)

// The three visibility naming conventions, newest first. The very oldest
// legacy correlator wrote one unbatched file per gpubox; those are folded
// in as batch 0.
var (
	reMWAX = regexp.MustCompile(
		`^\d{10}_\d{8}(.)?\d{6}_ch(\d{3})_(\d{3})\.fits$`)
	reLegacy = regexp.MustCompile(
		`^\d{10}_\d{14}_gpubox(\d{2})_(\d{2})\.fits$`)
	reOldLegacy = regexp.MustCompile(
		`^\d{10}_\d{14}_gpubox(\d{2})\.fits$`)
	reVoltage = regexp.MustCompile(`\.(sub|dat)$`)
)

// parsedName is what a visibility file's name alone tells us.
type parsedName struct {
	version metafits.MWAVersion
	// channel is the gpubox number for legacy names and the receiver
	// channel number for MWAX names.
	channel int
	batch   int
}

func parseFilename(path string) (parsedName, error) {
	name := filepath.Base(path)

	if m := reMWAX.FindStringSubmatch(name); m != nil {
		return parsedName{
			version: metafits.CorrMWAXv2,
			channel: mustInt(m[2]),
			batch:   mustInt(m[3]),
		}, nil
	}
	if m := reLegacy.FindStringSubmatch(name); m != nil {
		return parsedName{
			version: metafits.CorrLegacy,
			channel: mustInt(m[1]),
			batch:   mustInt(m[2]),
		}, nil
	}
	if m := reOldLegacy.FindStringSubmatch(name); m != nil {
		return parsedName{
			version: metafits.CorrLegacy,
			channel: mustInt(m[1]),
		}, nil
	}
	if reVoltage.MatchString(name) {
		return parsedName{}, fmt.Errorf("%w: '%s'", ErrMixedKinds, name)
	}
	return parsedName{}, fmt.Errorf("%w: '%s'", ErrUnrecognised, name)
}

// mustInt converts digits already matched by a regexp.
func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil { panic(err) }
	return n
}
