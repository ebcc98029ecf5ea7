// Package sections encodes the sentinel-framed header variables and classes
// sections and the preview block.
package sections
