// Package document is the typed object graph of a drawing: symbol tables,
// block records with their entities, dictionaries, xrecords and objects whose
// types are kept as raw records.
//
// Every object carries its handle and a lookup-only reference to its owner.
// Ownership flows one way: a table owns its entries, a block record owns its
// entities and a dictionary owns its entries. Owner pointers never extend
// lifetimes; they exist so callers can walk upwards.
//
// A Document is safe for concurrent reads once built. It has no concurrent
// mutation API.
package document
