package metafits

import (
	"errors"
	"fmt"
)

// MWAVersion identifies which generation of MWA instrument wrote an
// observation's data files. The legacy instrument and the MWAX upgrade
// differ in file naming, geometry, and data layout, so almost everything
// downstream branches on this.
type MWAVersion int

const (
	// VersionNone asks for the version to be inferred from the metafits
	// MODE key.
	VersionNone MWAVersion = iota
	// CorrLegacy is the original correlator, which wrote gpubox FITS
	// files.
	CorrLegacy
	// CorrMWAXv2 is the MWAX correlator, which writes wideband channel
	// FITS files.
	CorrMWAXv2
	// VCSLegacyRecombined is the original voltage capture system after
	// recombining, which wrote .dat files.
	VCSLegacyRecombined
	// VCSMWAXv2 is the MWAX voltage capture system, which writes .sub
	// files.
	VCSMWAXv2
)

var ErrUnknownMode = errors.New(
	"metafits: the MODE key does not name a known observation mode")

func (v MWAVersion) String() string {
	switch v {
	case CorrLegacy: return "Correlator v1 Legacy"
	case CorrMWAXv2: return "Correlator v2 MWAX"
	case VCSLegacyRecombined: return "VCS Legacy Recombined"
	case VCSMWAXv2: return "VCS MWAX v2"
	}
	return "Unknown"
}

// IsCorrelator returns true for the two correlator versions.
func (v MWAVersion) IsCorrelator() bool {
	return v == CorrLegacy || v == CorrMWAXv2
}

// IsVoltage returns true for the two voltage-capture versions.
func (v MWAVersion) IsVoltage() bool {
	return v == VCSLegacyRecombined || v == VCSMWAXv2
}

// VersionFromMode maps the metafits MODE key to an MWAVersion.
func VersionFromMode(mode string) (MWAVersion, error) {
	switch mode {
	case "HW_LFILES": return CorrLegacy, nil
	case "MWAX_CORRELATOR": return CorrMWAXv2, nil
	case "VOLTAGE_START", "VOLTAGE_BUFFER": return VCSLegacyRecombined, nil
	case "MWAX_VCS": return VCSMWAXv2, nil
	}
	return VersionNone, fmt.Errorf("%w: '%s'", ErrUnknownMode, mode)
}
