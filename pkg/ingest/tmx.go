package ingest

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// ErrInvalidTMX is returned for maps the importer cannot read.
var ErrInvalidTMX = errors.New("invalid TMX map")

// Tiled stores flip state in the top bits of each gid.
const gidFlipMask = 0xE0000000

// TMXOptions controls how a tile map becomes an outdoor graph.
type TMXOptions struct {
	// Layer names the walkable layer. Empty picks the first layer whose
	// name contains "road", then the first layer with data.
	Layer string
	// TargetGID marks tiles that get TargetTag. Zero disables tagging.
	TargetGID uint32
	TargetTag string
	// Scale converts pixels to metres. Zero means 1.
	Scale float64
	// IDPrefix is prepended to node and edge IDs.
	IDPrefix string
}

type tmxMap struct {
	XMLName    xml.Name   `xml:"map"`
	Width      int        `xml:"width,attr"`
	Height     int        `xml:"height,attr"`
	TileWidth  int        `xml:"tilewidth,attr"`
	TileHeight int        `xml:"tileheight,attr"`
	Infinite   int        `xml:"infinite,attr"`
	Layers     []tmxLayer `xml:"layer"`
	Groups     []tmxGroup `xml:"group"`
}

type tmxGroup struct {
	Layers []tmxLayer `xml:"layer"`
	Groups []tmxGroup `xml:"group"`
}

type tmxLayer struct {
	Name   string   `xml:"name,attr"`
	Width  int      `xml:"width,attr"`
	Height int      `xml:"height,attr"`
	Data   *tmxData `xml:"data"`
}

type tmxData struct {
	Encoding    string     `xml:"encoding,attr"`
	Compression string     `xml:"compression,attr"`
	Chunks      []tmxChunk `xml:"chunk"`
	Tiles       []tmxTile  `xml:"tile"`
	Text        string     `xml:",chardata"`
}

type tmxChunk struct {
	X      int       `xml:"x,attr"`
	Y      int       `xml:"y,attr"`
	Width  int       `xml:"width,attr"`
	Height int       `xml:"height,attr"`
	Tiles  []tmxTile `xml:"tile"`
	Text   string    `xml:",chardata"`
}

type tmxTile struct {
	GID uint32 `xml:"gid,attr"`
}

// TileGrid holds the non-empty tiles of one layer by map coordinate.
type TileGrid struct {
	Layer      string
	TileWidth  int
	TileHeight int
	tiles      map[[2]int]uint32
}

// Len returns the number of non-empty tiles.
func (tg *TileGrid) Len() int { return len(tg.tiles) }

// At returns the gid at (x, y), or 0.
func (tg *TileGrid) At(x, y int) uint32 { return tg.tiles[[2]int{x, y}] }

// coords returns tile coordinates in row-major order.
func (tg *TileGrid) coords() [][2]int {
	out := make([][2]int, 0, len(tg.tiles))
	for c := range tg.tiles {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b [2]int) int {
		if a[1] != b[1] {
			return a[1] - b[1]
		}
		return a[0] - b[0]
	})
	return out
}

// ReadTMX parses a Tiled map and extracts one layer.
func ReadTMX(r io.Reader, layer string) (*TileGrid, error) {
	var m tmxMap
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTMX, err)
	}
	if m.TileWidth <= 0 || m.TileHeight <= 0 {
		return nil, fmt.Errorf("%w: tile size %dx%d", ErrInvalidTMX, m.TileWidth, m.TileHeight)
	}

	layers := flattenLayers(m.Layers, m.Groups)
	l, err := pickLayer(layers, layer)
	if err != nil {
		return nil, err
	}

	grid := &TileGrid{
		Layer:      l.Name,
		TileWidth:  m.TileWidth,
		TileHeight: m.TileHeight,
		tiles:      make(map[[2]int]uint32),
	}

	if len(l.Data.Chunks) > 0 {
		for _, c := range l.Data.Chunks {
			gids, err := decodeTiles(l.Data, c.Text, c.Tiles, c.Width*c.Height)
			if err != nil {
				return nil, fmt.Errorf("%w: layer %q chunk (%d,%d): %w", ErrInvalidTMX, l.Name, c.X, c.Y, err)
			}
			grid.fill(gids, c.X, c.Y, c.Width)
		}
		return grid, nil
	}

	width := l.Width
	if width <= 0 {
		width = m.Width
	}
	height := l.Height
	if height <= 0 {
		height = m.Height
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: layer %q has no width", ErrInvalidTMX, l.Name)
	}
	gids, err := decodeTiles(l.Data, l.Data.Text, l.Data.Tiles, width*height)
	if err != nil {
		return nil, fmt.Errorf("%w: layer %q: %w", ErrInvalidTMX, l.Name, err)
	}
	grid.fill(gids, 0, 0, width)
	return grid, nil
}

func (tg *TileGrid) fill(gids []uint32, originX, originY, width int) {
	for i, gid := range gids {
		gid &^= gidFlipMask
		if gid == 0 {
			continue
		}
		tg.tiles[[2]int{originX + i%width, originY + i/width}] = gid
	}
}

func flattenLayers(layers []tmxLayer, groups []tmxGroup) []tmxLayer {
	out := slices.Clone(layers)
	for _, g := range groups {
		out = append(out, flattenLayers(g.Layers, g.Groups)...)
	}
	return out
}

func pickLayer(layers []tmxLayer, name string) (*tmxLayer, error) {
	if name != "" {
		for i := range layers {
			if layers[i].Name == name && layers[i].Data != nil {
				return &layers[i], nil
			}
		}
		return nil, fmt.Errorf("%w: no layer named %q with data", ErrInvalidTMX, name)
	}
	for i := range layers {
		if strings.Contains(strings.ToLower(layers[i].Name), "road") && layers[i].Data != nil {
			return &layers[i], nil
		}
	}
	for i := range layers {
		if layers[i].Data != nil {
			return &layers[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no layer with data", ErrInvalidTMX)
}

// decodeTiles reads up to n gids from CSV, base64 or legacy XML tile data.
func decodeTiles(d *tmxData, text string, tiles []tmxTile, n int) ([]uint32, error) {
	switch d.Encoding {
	case "csv":
		out := make([]uint32, 0, n)
		for _, field := range strings.Split(text, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseUint(field, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad csv gid %q", field)
			}
			out = append(out, uint32(v))
		}
		return truncate(out, n), nil

	case "base64":
		raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("base64: %w", err)
		}
		if raw, err = decompress(raw, d.Compression); err != nil {
			return nil, err
		}
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf("base64 data length %d is not a multiple of 4", len(raw))
		}
		out := make([]uint32, len(raw)/4)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return truncate(out, n), nil

	case "":
		out := make([]uint32, len(tiles))
		for i, t := range tiles {
			out[i] = t.GID
		}
		return truncate(out, n), nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", d.Encoding)
}

func decompress(raw []byte, compression string) ([]byte, error) {
	var rc io.ReadCloser
	var err error
	switch compression {
	case "":
		return raw, nil
	case "zlib":
		rc, err = zlib.NewReader(bytes.NewReader(raw))
	case "gzip":
		rc, err = gzip.NewReader(bytes.NewReader(raw))
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", compression, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func truncate(gids []uint32, n int) []uint32 {
	if n > 0 && len(gids) > n {
		return gids[:n]
	}
	return gids
}

// ImportTMX converts a tile map into a document of outdoor junctions.
// Every non-empty tile is a node at its centre, joined to its right and
// lower neighbours by walkways costing one tile.
func ImportTMX(r io.Reader, opts TMXOptions) (*Document, error) {
	grid, err := ReadTMX(r, opts.Layer)
	if err != nil {
		return nil, err
	}
	if grid.Len() == 0 {
		return nil, fmt.Errorf("%w: layer %q has no tiles", ErrInvalidTMX, grid.Layer)
	}
	return grid.Document(opts), nil
}

// TileNodeID returns the node ID ImportTMX assigns to tile (x, y).
func TileNodeID(prefix string, x, y int) string {
	return fmt.Sprintf("%s%d,%d", prefix, x, y)
}

// Document renders the grid as outdoor junctions and walkways.
func (tg *TileGrid) Document(opts TMXOptions) *Document {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}
	tag := opts.TargetTag
	if tag == "" {
		tag = "target"
	}
	stepX := float64(tg.TileWidth) * scale
	stepY := float64(tg.TileHeight) * scale

	doc := &Document{Version: FormatVersion, Campus: tg.Layer}
	for _, c := range tg.coords() {
		x, y := c[0], c[1]
		n := NodeDoc{
			ID:   TileNodeID(opts.IDPrefix, x, y),
			Type: string(storage.NodeJunction),
			X:    (float64(x) + 0.5) * stepX,
			Y:    (float64(y) + 0.5) * stepY,
		}
		if opts.TargetGID != 0 && tg.At(x, y) == opts.TargetGID {
			n.Tags = []string{tag}
		}
		doc.Nodes = append(doc.Nodes, n)

		if tg.At(x+1, y) != 0 {
			doc.Edges = append(doc.Edges, tileEdge(opts.IDPrefix, "h", x, y, x+1, y, stepX))
		}
		if tg.At(x, y+1) != 0 {
			doc.Edges = append(doc.Edges, tileEdge(opts.IDPrefix, "v", x, y, x, y+1, stepY))
		}
	}
	return doc
}

func tileEdge(prefix, axis string, x1, y1, x2, y2 int, cost float64) EdgeDoc {
	return EdgeDoc{
		ID:   fmt.Sprintf("%s%s%d,%d", prefix, axis, x1, y1),
		From: TileNodeID(prefix, x1, y1),
		To:   TileNodeID(prefix, x2, y2),
		Cost: &cost,
		Kind: string(storage.EdgeWalkway),
	}
}
