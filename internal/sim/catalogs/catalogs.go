package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"factorycraft.ai/internal/sim/grid"
)

type Catalogs struct {
	Blocks *BlockCatalog
}

// BlockCatalog maps block ids to palette kinds and route traits.
type BlockCatalog struct {
	Palette       []string
	Index         map[string]grid.Kind
	Defs          map[string]BlockDef
	PaletteDigest string
	DefsDigest    string

	traits []grid.Traits
}

type BlockDef struct {
	ID        string `json:"id"`
	Solid     bool   `json:"solid"`
	Occluding bool   `json:"occluding"`
	Class     string `json:"class,omitempty"`
	Tint      string `json:"tint,omitempty"`
}

const blocksSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["id"],
    "additionalProperties": false,
    "properties": {
      "id": {"type": "string", "pattern": "^[A-Z][A-Z0-9_]*$"},
      "solid": {"type": "boolean"},
      "occluding": {"type": "boolean"},
      "class": {"enum": ["", "CONDUIT", "ACTUATOR", "STICKY_ACTUATOR", "WIRE", "AMPLIFIER", "COMPARATOR"]},
      "tint": {"type": "string"}
    }
  }
}`

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	blocks, err := LoadBlocks(filepath.Join(configDir, "blocks.json"))
	if err != nil {
		return nil, err
	}
	c.Blocks = blocks
	return &c, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func LoadBlocks(path string) (*BlockCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateBlocks(raw); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}

	var defs []BlockDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	out, err := NewBlockCatalog(defs)
	if err != nil {
		return nil, fmt.Errorf("blocks.json: %w", err)
	}
	out.DefsDigest = sha256Hex(raw)
	return out, nil
}

func validateBlocks(raw []byte) error {
	schema, err := jsonschema.CompileString("blocks.schema.json", blocksSchema)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}

// NewBlockCatalog builds a catalog from definitions. AIR must be present and
// always gets palette id 0; the remaining ids are sorted.
func NewBlockCatalog(defs []BlockDef) (*BlockCatalog, error) {
	out := &BlockCatalog{Defs: map[string]BlockDef{}}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("empty id")
		}
		if _, dup := out.Defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate id %s", d.ID)
		}
		if _, err := grid.ParseClass(d.Class); err != nil {
			return nil, fmt.Errorf("block %s: %w", d.ID, err)
		}
		out.Defs[d.ID] = d
	}
	if _, ok := out.Defs["AIR"]; !ok {
		return nil, fmt.Errorf("missing AIR")
	}

	ids := make([]string, 0, len(out.Defs))
	for id := range out.Defs {
		if id == "AIR" {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ids = append([]string{"AIR"}, ids...)

	out.Palette = ids
	out.Index = make(map[string]grid.Kind, len(ids))
	out.traits = make([]grid.Traits, len(ids))
	for i, id := range ids {
		d := out.Defs[id]
		class, _ := grid.ParseClass(d.Class)
		out.Index[id] = grid.Kind(i)
		out.traits[i] = grid.Traits{
			Class:     class,
			Tint:      strings.ToUpper(strings.TrimSpace(d.Tint)),
			Solid:     d.Solid,
			Occluding: d.Occluding,
		}
	}
	palJSON, _ := json.Marshal(ids)
	out.PaletteDigest = sha256Hex(palJSON)

	var concat bytes.Buffer
	for _, id := range ids {
		b, _ := json.Marshal(out.Defs[id])
		concat.Write(b)
		concat.WriteByte('\n')
	}
	out.DefsDigest = sha256Hex(concat.Bytes())
	return out, nil
}

// Traits implements grid.Palette.
func (c *BlockCatalog) Traits(k grid.Kind) grid.Traits {
	if int(k) >= len(c.traits) {
		return grid.Traits{}
	}
	return c.traits[k]
}

func (c *BlockCatalog) Kind(id string) (grid.Kind, bool) {
	k, ok := c.Index[id]
	return k, ok
}

func (c *BlockCatalog) MustKind(id string) grid.Kind {
	k, ok := c.Index[id]
	if !ok {
		panic(fmt.Sprintf("unknown block %q", id))
	}
	return k
}

func (c *BlockCatalog) Name(k grid.Kind) string {
	if int(k) >= len(c.Palette) {
		return fmt.Sprintf("UNKNOWN_%d", k)
	}
	return c.Palette[k]
}
