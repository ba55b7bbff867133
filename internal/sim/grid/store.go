package grid

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
)

const (
	ChunkSize  = 16
	chunkCells = ChunkSize * ChunkSize * ChunkSize
)

type ChunkKey struct {
	CX int
	CY int
	CZ int
}

func (k ChunkKey) Contains(c Coord) bool { return c.Chunk() == k }

type Chunk struct {
	CX, CY, CZ int
	Kinds      []Kind  // len = 16*16*16
	Facings    []uint8 // 0 = none, otherwise Direction+1

	dirty bool
	hash  [32]byte
}

func newChunk(k ChunkKey) *Chunk {
	return &Chunk{
		CX:      k.CX,
		CY:      k.CY,
		CZ:      k.CZ,
		Kinds:   make([]Kind, chunkCells),
		Facings: make([]uint8, chunkCells),
	}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*ChunkSize + y*ChunkSize*ChunkSize
}

func (c *Chunk) Get(x, y, z int) Cell {
	i := c.index(x, y, z)
	f := c.Facings[i]
	if f == 0 {
		return Cell{Kind: c.Kinds[i]}
	}
	return Cell{Kind: c.Kinds[i], Facing: Direction(f - 1), HasFacing: true}
}

// Set stores a cell and reports whether anything changed.
func (c *Chunk) Set(x, y, z int, cell Cell) bool {
	i := c.index(x, y, z)
	var f uint8
	if cell.HasFacing && cell.Facing.Valid() {
		f = uint8(cell.Facing) + 1
	}
	if c.Kinds[i] == cell.Kind && c.Facings[i] == f {
		return false
	}
	c.Kinds[i] = cell.Kind
	c.Facings[i] = f
	c.dirty = true
	return true
}

func (c *Chunk) Empty() bool {
	for _, k := range c.Kinds {
		if k != Air {
			return false
		}
	}
	return true
}

func (c *Chunk) Digest() [32]byte {
	if c.dirty || c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Kinds {
			binary.LittleEndian.PutUint16(tmp[:], uint16(v))
			h.Write(tmp[:])
		}
		h.Write(c.Facings)
		copy(c.hash[:], h.Sum(nil))
		c.dirty = false
	}
	return c.hash
}

// ChunkStore is the in-memory cell store for one world. It implements Adapter.
type ChunkStore struct {
	World  string
	Chunks map[ChunkKey]*Chunk
}

func NewChunkStore(world string) *ChunkStore {
	return &ChunkStore{
		World:  world,
		Chunks: map[ChunkKey]*Chunk{},
	}
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		if keys[i].CY != keys[j].CY {
			return keys[i].CY < keys[j].CY
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

func (s *ChunkStore) GetCell(c Coord) Cell {
	if c.World != s.World {
		return Cell{}
	}
	ch, ok := s.Chunks[c.Chunk()]
	if !ok {
		return Cell{}
	}
	return ch.Get(mod(c.X, ChunkSize), mod(c.Y, ChunkSize), mod(c.Z, ChunkSize))
}

// SetCell writes a cell and reports whether it changed. Writing AIR into an
// unloaded chunk does not allocate it.
func (s *ChunkStore) SetCell(c Coord, cell Cell) bool {
	if c.World != s.World {
		return false
	}
	k := c.Chunk()
	ch, ok := s.Chunks[k]
	if !ok {
		if cell.Kind == Air && !cell.HasFacing {
			return false
		}
		ch = newChunk(k)
		s.Chunks[k] = ch
	}
	return ch.Set(mod(c.X, ChunkSize), mod(c.Y, ChunkSize), mod(c.Z, ChunkSize), cell)
}

// Unload drops a chunk and returns the non-air coordinates it held.
func (s *ChunkStore) Unload(k ChunkKey) []Coord {
	ch, ok := s.Chunks[k]
	if !ok {
		return nil
	}
	delete(s.Chunks, k)
	var out []Coord
	for y := 0; y < ChunkSize; y++ {
		for z := 0; z < ChunkSize; z++ {
			for x := 0; x < ChunkSize; x++ {
				if ch.Kinds[ch.index(x, y, z)] == Air {
					continue
				}
				out = append(out, Coord{
					World: s.World,
					X:     k.CX*ChunkSize + x,
					Y:     k.CY*ChunkSize + y,
					Z:     k.CZ*ChunkSize + z,
				})
			}
		}
	}
	return out
}

func (s *ChunkStore) CellKind(c Coord) Kind { return s.GetCell(c).Kind }

func (s *ChunkStore) Orientation(c Coord) (Direction, bool) {
	cell := s.GetCell(c)
	return cell.Facing, cell.HasFacing
}
