package domain

import (
	"fmt"
	"strings"
)

// GenreFamily is a coarse cluster of related genres.
type GenreFamily int

const (
	FamilyOther GenreFamily = iota
	FamilyHouse
	FamilyTechno
	FamilyBass
	FamilyDowntempo
)

func (f GenreFamily) String() string {
	switch f {
	case FamilyHouse:
		return "House"
	case FamilyTechno:
		return "Techno"
	case FamilyBass:
		return "Bass"
	case FamilyDowntempo:
		return "Downtempo"
	default:
		return "Other"
	}
}

// ParseGenreFamily is the inverse of GenreFamily.String, case-insensitive.
func ParseGenreFamily(raw string) (GenreFamily, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "house":
		return FamilyHouse, nil
	case "techno":
		return FamilyTechno, nil
	case "bass":
		return FamilyBass, nil
	case "downtempo":
		return FamilyDowntempo, nil
	case "other", "":
		return FamilyOther, nil
	default:
		return FamilyOther, fmt.Errorf("domain: unknown genre family %q", raw)
	}
}

// GenreClass is the result of running free-text genre through the taxonomy.
// An empty Canonical means the genre is unknown.
type GenreClass struct {
	Canonical string
	Family    GenreFamily
}

// Known reports whether the taxonomy recognised the genre.
func (g GenreClass) Known() bool {
	return g.Canonical != ""
}
