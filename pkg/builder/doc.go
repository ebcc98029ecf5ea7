// Package builder turns decoded object templates into a linked document and
// back.
//
// Building happens in two phases. Add collects templates into a
// handle-ordered tree and rejects duplicate handles. Build then resolves every
// stored handle into a live object. Objects are allocated before their fields
// are filled, so a reference cycle resolves to the allocated object instead of
// recursing. References that do not resolve, or resolve to an object of the
// wrong type, fall back to the drawing defaults and are reported through the
// notification handler.
//
// Flatten is the inverse: it walks a document and produces one template per
// object, assigning handles to objects that have none.
package builder
