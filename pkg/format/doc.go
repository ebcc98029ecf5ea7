// Package format holds the constants shared by every layer of the container
// codec: version tags and their layout families, the 16-byte section
// sentinels, logical section names and the error taxonomy.
//
// # Versions
//
//	AC1012 R13    flat
//	AC1014 R14    flat
//	AC1015 R2000  flat
//	AC1018 R2004  paged
//	AC1021 R2007  compressed metadata
//	AC1024 R2010  paged
//	AC1027 R2013  paged
//	AC1032 R2018  paged
//
// Tags of older revisions are recognised only to report ErrUnsupportedVersion.
//
// # Errors
//
// Fatal structural problems are reported as *CorruptionError, which carries
// the section name and byte offset and matches ErrCorrupt with errors.Is.
// Unsupported input is reported with ErrUnsupportedVersion, ErrUnsupportedType
// or ErrEncrypted.
package format
