package mwalib

import (
	"errors"
)

var (
	// ErrInvalidTimestepIndex means a timestep index was out of range
	// for the context's timestep list.
	ErrInvalidTimestepIndex = errors.New(
		"mwalib: the timestep index is out of range")
	// ErrInvalidCoarseChanIndex means a coarse channel index was out of
	// range for the context's coarse channel list.
	ErrInvalidCoarseChanIndex = errors.New(
		"mwalib: the coarse channel index is out of range")
	// ErrNoData means the requested timestep and coarse channel are
	// valid coordinates, but none of the supplied files carries them.
	ErrNoData = errors.New(
		"mwalib: no data file covers the requested timestep and coarse " +
			"channel")
	// ErrVersionConflict means the metafits MODE and the supplied data
	// files disagree about the instrument generation.
	ErrVersionConflict = errors.New(
		"mwalib: the metafits observation mode and the data files come " +
			"from different instrument generations")
	// ErrShortRead means a data file passed catalog validation but then
	// delivered fewer bytes than its geometry promises.
	ErrShortRead = errors.New(
		"mwalib: a data file delivered less data than its size promised")
	// ErrInvalidGpsSecond means a requested GPS second falls outside the
	// data files.
	ErrInvalidGpsSecond = errors.New(
		"mwalib: the requested GPS seconds are not covered by the " +
			"supplied files")
	// ErrInvalidSecondCount rejects a non-positive second count.
	ErrInvalidSecondCount = errors.New(
		"mwalib: the number of seconds to read must be positive")
)
