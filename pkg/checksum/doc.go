// Package checksum implements the three integrity checks used by the
// container format.
//
//   - CRC8: a 16-bit table CRC (reflected 0xA001 polynomial) protecting the
//     flat file header, sentinel-bracketed sections, handle buckets and object
//     records. Seeds are 0 for the file header and 0xC0C1 elsewhere.
//   - Page: an Adler-style checksum over 0x15B0-byte chunks, seeded from the
//     page header, protecting paged section data and system pages.
//   - CRC32: IEEE CRC32 over the encrypted metadata block of the paged layout.
//
// All functions are pure. Verifier decides whether a mismatch aborts the read
// or is reported as a notification.
package checksum
