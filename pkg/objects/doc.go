// Package objects decodes and encodes object records into templates.
//
// A record is framed as
//
//	MS size, [MC handle stream bits from R2010], body, RS CRC8
//
// and its body carries the type code, the handle, extended data, common
// entity or object fields, the type's own fields and finally the handle
// stream. Reference fields are collected as absolute handle values and left
// unresolved; the document builder wires them up once every record is known.
//
// Types without a schema are kept as raw templates when Options.RetainUnknown
// is set so a read-modify-write round trip preserves them.
package objects
