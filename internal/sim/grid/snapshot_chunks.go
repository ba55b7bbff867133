package grid

import (
	"fmt"

	snapv1 "factorycraft.ai/internal/persistence/snapshot"
)

// ExportChunks converts loaded chunk data into snapshot chunks, in key order.
// All-air chunks are skipped.
func (s *ChunkStore) ExportChunks() []snapv1.ChunkV1 {
	keys := s.LoadedChunkKeys()
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := s.Chunks[k]
		if ch == nil || ch.Empty() {
			continue
		}
		kinds := make([]uint16, len(ch.Kinds))
		for i, v := range ch.Kinds {
			kinds[i] = uint16(v)
		}
		facings := make([]uint8, len(ch.Facings))
		copy(facings, ch.Facings)
		out = append(out, snapv1.ChunkV1{
			CX:      k.CX,
			CY:      k.CY,
			CZ:      k.CZ,
			Kinds:   kinds,
			Facings: facings,
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks.
func ImportChunks(world string, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	store := NewChunkStore(world)
	for _, ch := range chunks {
		if len(ch.Kinds) != chunkCells {
			return nil, fmt.Errorf("snapshot chunk %d,%d,%d kinds length mismatch: got %d want %d", ch.CX, ch.CY, ch.CZ, len(ch.Kinds), chunkCells)
		}
		if len(ch.Facings) != chunkCells {
			return nil, fmt.Errorf("snapshot chunk %d,%d,%d facings length mismatch: got %d want %d", ch.CX, ch.CY, ch.CZ, len(ch.Facings), chunkCells)
		}
		k := ChunkKey{CX: ch.CX, CY: ch.CY, CZ: ch.CZ}
		c := newChunk(k)
		for i, v := range ch.Kinds {
			c.Kinds[i] = Kind(v)
		}
		for i, f := range ch.Facings {
			if f > uint8(North)+1 {
				return nil, fmt.Errorf("snapshot chunk %d,%d,%d: bad facing %d", ch.CX, ch.CY, ch.CZ, f)
			}
			c.Facings[i] = f
		}
		_ = c.Digest()
		store.Chunks[k] = c
	}
	return store, nil
}
