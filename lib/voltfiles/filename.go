package voltfiles

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
		"voltfiles: a file name does not match any voltage file naming " +
			"convention")
	ErrMixedKinds = errors.New(
		"voltfiles: a correlator visibility file was given to a voltage " +
			"context")
)

// Voltage file names carry everything the catalog needs: the observation
// ID, the file's start in GPS seconds, and its receiver channel.
var (
	reMWAX = regexp.MustCompile(
		`^(\d{10})_(\d{10})_(\d{1,3})\.sub$`)
	reLegacy = regexp.MustCompile(
		`^(\d{10})_(\d{10})_ch(\d{1,3})\.dat$`)
	reCorrelator = regexp.MustCompile(`\.fits$`)
)

type parsedName struct {
	version   metafits.MWAVersion
	obsID     uint32
	gpsSecond uint64
	channel   int
}

func parseFilename(path string) (parsedName, error) {
	name := filepath.Base(path)

	if m := reMWAX.FindStringSubmatch(name); m != nil {
		return parsedName{
			version:   metafits.VCSMWAXv2,
			obsID:     uint32(mustInt(m[1])),
			gpsSecond: uint64(mustInt(m[2])),
			channel:   mustInt(m[3]),
		}, nil
	}
	if m := reLegacy.FindStringSubmatch(name); m != nil {
		return parsedName{
			version:   metafits.VCSLegacyRecombined,
			obsID:     uint32(mustInt(m[1])),
			gpsSecond: uint64(mustInt(m[2])),
			channel:   mustInt(m[3]),
		}, nil
	}
	if reCorrelator.MatchString(name) {
		return parsedName{}, fmt.Errorf("%w: '%s'", ErrMixedKinds, name)
	}
	return parsedName{}, fmt.Errorf("%w: '%s'", ErrUnrecognised, name)
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil { panic(err) }
	return n
}
