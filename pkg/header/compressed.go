package header

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"github.com/klauspost/reedsolomon"

	"github.com/ssargent/dwgkit/pkg/checksum"
	"github.com/ssargent/dwgkit/pkg/compress"
	"github.com/ssargent/dwgkit/pkg/format"
	"github.com/ssargent/dwgkit/pkg/notify"
)

const (
	compressedBase = 0x480

	rsDataShards   = 4
	rsParityShards = 2
	rsShardSize    = 0xA0
	rsRegionSize   = (rsDataShards + rsParityShards) * rsShardSize

	prologueSize  = 20
	prologueMagic = 0x444D5352
)

// metadataSeedSource picks the mask seed of a new compressed metadata block.
var metadataSeedSource = rand.Uint32

// compressedLayout stores the metadata block LZ77-compressed, masked with a
// random seed and protected by Reed-Solomon parity.
type compressedLayout struct {
	pagedLayout
}

func (l *compressedLayout) Family() format.LayoutFamily { return format.LayoutCompressedMetadata }

func (l *compressedLayout) ReadHeader(data []byte) (*FileHeader, error) {
	hdr, err := readPrefix(data)
	if err != nil {
		return nil, err
	}
	if len(data) < metadataOffset+rsRegionSize {
		return nil, format.Corruption(format.MetadataBlockName, metadataOffset, format.ErrTruncated)
	}

	shards := make([][]byte, rsDataShards+rsParityShards)
	for i := range shards {
		shards[i] = make([]byte, rsShardSize)
		copy(shards[i], data[metadataOffset+i*rsShardSize:])
	}
	block, err := l.recoverMetadata(shards)
	if err != nil {
		return nil, err
	}

	meta, err := unmarshalMetadata(block, l.opts.verifier(), metadataOffset)
	if err != nil {
		return nil, err
	}
	if err := l.readDirectory(data, hdr, meta); err != nil {
		return nil, err
	}
	return hdr, nil
}

// recoverMetadata checks the parity of shards and, outside strict mode,
// rebuilds a single damaged shard before decoding the block.
func (l *compressedLayout) recoverMetadata(shards [][]byte) ([]byte, error) {
	enc, err := reedsolomon.New(rsDataShards, rsParityShards)
	if err != nil {
		return nil, fmt.Errorf("failed to create parity codec: %w", err)
	}
	ok, err := enc.Verify(shards)
	if err != nil {
		return nil, format.Corruption(format.MetadataBlockName, metadataOffset, err)
	}
	if ok {
		return decodePrologue(shards)
	}

	parityErr := format.Corruption(format.MetadataBlockName, metadataOffset,
		fmt.Errorf("%w: metadata parity does not match", format.ErrChecksumMismatch))
	if l.opts.Strict {
		return nil, parityErr
	}

	if block, err := decodePrologue(shards); err == nil {
		l.opts.Notify.Warn(notify.KindChecksum, parityErr, "metadata parity damaged, data shards intact")
		return block, nil
	}
	for i := 0; i < rsDataShards; i++ {
		trial := make([][]byte, len(shards))
		copy(trial, shards)
		trial[i] = nil
		if err := enc.ReconstructData(trial); err != nil {
			continue
		}
		block, err := decodePrologue(trial)
		if err != nil {
			continue
		}
		l.opts.Notify.Warn(notify.KindChecksum, parityErr, "metadata shard %d rebuilt from parity", i)
		return block, nil
	}
	return nil, parityErr
}

// decodePrologue unmasks and inflates the metadata block held by the data
// shards.
func decodePrologue(shards [][]byte) ([]byte, error) {
	region := make([]byte, 0, rsDataShards*rsShardSize)
	for _, s := range shards[:rsDataShards] {
		region = append(region, s...)
	}
	le := binary.LittleEndian
	if le.Uint32(region) != prologueMagic {
		return nil, format.Corruption(format.MetadataBlockName, metadataOffset,
			fmt.Errorf("%w: bad metadata prologue", format.ErrCorrupt))
	}
	seed := le.Uint32(region[4:])
	compLen := int(le.Uint32(region[8:]))
	decompLen := int(le.Uint32(region[12:]))
	stored := le.Uint32(region[16:])
	if compLen > len(region)-prologueSize || decompLen != metadataSize {
		return nil, format.Corruption(format.MetadataBlockName, metadataOffset,
			fmt.Errorf("%w: metadata prologue declares %d/%d bytes", format.ErrSizeMismatch, compLen, decompLen))
	}

	payload := make([]byte, compLen)
	copy(payload, region[prologueSize:])
	if sum := checksum.Page(seed, payload); sum != stored {
		return nil, format.Corruption(format.MetadataBlockName, metadataOffset,
			fmt.Errorf("%w: computed 0x%X, stored 0x%X", format.ErrChecksumMismatch, sum, stored))
	}
	xorLCG(payload, seed)
	block, err := compress.Decompress(payload, decompLen)
	if err != nil {
		return nil, format.Corruption(format.MetadataBlockName, metadataOffset, err)
	}
	return block, nil
}

func (l *compressedLayout) Write(hdr *FileHeader, sections []Section, handles HandleEncoder) ([]byte, error) {
	out, meta, err := l.writeBody(hdr, sections, handles)
	if err != nil {
		return nil, err
	}
	block := meta.marshal()

	payload, err := compress.Compress(block)
	if err != nil {
		return nil, fmt.Errorf("failed to compress metadata: %w", err)
	}
	seed := metadataSeedSource()
	xorLCG(payload, seed)
	if prologueSize+len(payload) > rsDataShards*rsShardSize {
		return nil, fmt.Errorf("metadata of %d bytes does not fit its region", len(payload))
	}

	region := make([]byte, rsRegionSize)
	le := binary.LittleEndian
	le.PutUint32(region[0:], prologueMagic)
	le.PutUint32(region[4:], seed)
	le.PutUint32(region[8:], uint32(len(payload)))
	le.PutUint32(region[12:], metadataSize)
	le.PutUint32(region[16:], checksum.Page(seed, payload))
	copy(region[prologueSize:], payload)

	shards := make([][]byte, rsDataShards+rsParityShards)
	for i := range shards {
		shards[i] = region[i*rsShardSize : (i+1)*rsShardSize]
	}
	enc, err := reedsolomon.New(rsDataShards, rsParityShards)
	if err != nil {
		return nil, fmt.Errorf("failed to create parity codec: %w", err)
	}
	if err := enc.Encode(shards); err != nil {
		return nil, fmt.Errorf("failed to encode metadata parity: %w", err)
	}

	trailer := make([]byte, secondHeaderLength)
	copy(trailer, block)
	xorLCG(trailer[:metadataSize], metadataSeed)
	out = append(out, trailer...)

	copy(out, writePrefix(hdr))
	copy(out[metadataOffset:], region)
	return out, nil
}
