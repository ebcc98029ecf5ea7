package format

import "fmt"

// Version identifies a container format revision by its 6-byte tag.
type Version int

const (
	VersionUnknown Version = iota
	AC1012                 // R13
	AC1014                 // R14
	AC1015                 // R2000
	AC1018                 // R2004
	AC1021                 // R2007
	AC1024                 // R2010
	AC1027                 // R2013
	AC1032                 // R2018
)

// LayoutFamily is the closed set of on-disk header layouts.
type LayoutFamily int

const (
	LayoutUnknown LayoutFamily = iota
	LayoutFlat
	LayoutPaged
	LayoutCompressedMetadata
)

func (f LayoutFamily) String() string {
	switch f {
	case LayoutFlat:
		return "flat"
	case LayoutPaged:
		return "paged"
	case LayoutCompressedMetadata:
		return "compressed-metadata"
	}
	return "unknown"
}

var versionTags = map[Version]string{
	AC1012: "AC1012",
	AC1014: "AC1014",
	AC1015: "AC1015",
	AC1018: "AC1018",
	AC1021: "AC1021",
	AC1024: "AC1024",
	AC1027: "AC1027",
	AC1032: "AC1032",
}

var releaseNames = map[Version]string{
	AC1012: "R13",
	AC1014: "R14",
	AC1015: "R2000",
	AC1018: "R2004",
	AC1021: "R2007",
	AC1024: "R2010",
	AC1027: "R2013",
	AC1032: "R2018",
}

// legacyTags are tags of revisions older than the flat layout.
var legacyTags = map[string]string{
	"MC0.0":  "R1.0",
	"AC1.2":  "R1.2",
	"AC1.40": "R1.40",
	"AC1.50": "R2.05",
	"AC2.10": "R2.10",
	"AC1001": "R2.22",
	"AC1002": "R2.50",
	"AC1003": "R2.60",
	"AC1004": "R9",
	"AC1006": "R10",
	"AC1009": "R11/R12",
}

// Versions lists every supported version, oldest first.
func Versions() []Version {
	return []Version{AC1012, AC1014, AC1015, AC1018, AC1021, AC1024, AC1027, AC1032}
}

// ParseVersion maps a version tag to a Version. Legacy and unrecognised tags
// return ErrUnsupportedVersion.
func ParseVersion(tag string) (Version, error) {
	for v, t := range versionTags {
		if t == tag {
			return v, nil
		}
	}
	if release, ok := legacyTags[tag]; ok {
		return VersionUnknown, fmt.Errorf("%s (%s): %w", tag, release, ErrUnsupportedVersion)
	}
	return VersionUnknown, fmt.Errorf("tag %q: %w", tag, ErrUnsupportedVersion)
}

// Tag returns the 6-byte ASCII tag written at offset 0.
func (v Version) Tag() string {
	return versionTags[v]
}

// Release returns the product release name, e.g. "R2004".
func (v Version) Release() string {
	if r, ok := releaseNames[v]; ok {
		return r
	}
	return "unknown"
}

func (v Version) String() string {
	if t, ok := versionTags[v]; ok {
		return t
	}
	return "unknown"
}

// Valid reports whether v is a supported version.
func (v Version) Valid() bool {
	_, ok := versionTags[v]
	return ok
}

// Layout returns the header layout family used by v.
func (v Version) Layout() LayoutFamily {
	switch v {
	case AC1012, AC1014, AC1015:
		return LayoutFlat
	case AC1018, AC1024, AC1027, AC1032:
		return LayoutPaged
	case AC1021:
		return LayoutCompressedMetadata
	}
	return LayoutUnknown
}

// AtLeast reports whether v is the same as or newer than other.
func (v Version) AtLeast(other Version) bool {
	return v >= other
}

// Before reports whether v is older than other.
func (v Version) Before(other Version) bool {
	return v < other
}

// MaintenanceVersion is the default maintenance release written for v.
func (v Version) MaintenanceVersion() byte {
	switch v {
	case AC1015:
		return 0x0F
	case AC1018:
		return 0x19
	case AC1021:
		return 0x1F
	case AC1024:
		return 0x06
	case AC1027:
		return 0x08
	case AC1032:
		return 0x00
	}
	return 0x00
}

// MarshalText implements encoding.TextMarshaler.
func (v Version) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("version %d: %w", int(v), ErrUnsupportedVersion)
	}
	return []byte(v.Tag()), nil
}

// UnmarshalText accepts either a tag ("AC1018") or a release name ("R2004").
func (v *Version) UnmarshalText(text []byte) error {
	s := string(text)
	for ver, r := range releaseNames {
		if r == s {
			*v = ver
			return nil
		}
	}
	parsed, err := ParseVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
