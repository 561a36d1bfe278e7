package court

import (
	"fmt"
	"slices"
)

// ShotType is the kind of stroke played.
type ShotType string

const (
	ServeShort  ShotType = "serve_short"
	ServeLong   ShotType = "serve_long"
	Clear       ShotType = "clear"
	Smash       ShotType = "smash"
	Drop        ShotType = "drop"
	LongReturn  ShotType = "long_return"
	ShortReturn ShotType = "short_return"
	Drive       ShotType = "drive"
	Lob         ShotType = "lob"
	Push        ShotType = "push"
	Hairpin     ShotType = "hairpin"
)

var serveTypes = []ShotType{ServeShort, ServeLong}

var bandShotTypes = map[Band][]ShotType{
	Near: {Smash, Drop, Clear, LongReturn, ShortReturn},
	Mid:  {Drive, Drop, Smash, Clear, LongReturn, ShortReturn},
	Far:  {Push, Hairpin, Lob, Clear, Drive, LongReturn, ShortReturn},
}

// Valid reports whether t is a known shot type.
func (t ShotType) Valid() bool {
	return t.IsServe() || slices.Contains(bandShotTypes[Far], t) || slices.Contains(bandShotTypes[Mid], t)
}

// IsServe reports whether t is one of the two serve types.
func (t ShotType) IsServe() bool {
	return t == ServeShort || t == ServeLong
}

// ParseShotType converts a raw identifier into a ShotType.
func ParseShotType(s string) (ShotType, error) {
	t := ShotType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown shot type %q", s)
	}
	return t, nil
}

// ServeShotTypes returns the shot types allowed before a rally has started.
func ServeShotTypes() []ShotType {
	return slices.Clone(serveTypes)
}

// LegalShotTypes returns the rally shots that can be played from a zone.
// The set depends only on the band of the hitting zone.
func LegalShotTypes(z Zone) []ShotType {
	return slices.Clone(bandShotTypes[BandOf(z)])
}

// IsLegalShot reports whether t can be played from z. Serves are only legal
// when serving is true, and rally shots only when it is false.
func IsLegalShot(z Zone, t ShotType, serving bool) bool {
	if serving {
		return t.IsServe()
	}
	return slices.Contains(bandShotTypes[BandOf(z)], t)
}

// DefaultShotType is the shot type preselected when a hitting zone is picked.
func DefaultShotType(z Zone, serving bool) ShotType {
	if serving {
		return ServeShort
	}
	return bandShotTypes[BandOf(z)][0]
}
