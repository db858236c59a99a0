package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// MaxDocumentBytes bounds how much Decode will read.
const MaxDocumentBytes = 64 << 20

// FormatFromPath picks the encoding from a file extension. Unknown
// extensions are treated as YAML, which also accepts JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// FormatFromContentType maps an HTTP content type to an encoding.
func FormatFromContentType(ct string) Format {
	if strings.Contains(ct, "yaml") {
		return FormatYAML
	}
	return FormatJSON
}

// Decode reads and validates a document.
func Decode(r io.Reader, format Format) (*Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxDocumentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(data) > MaxDocumentBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", ErrInvalidDocument, MaxDocumentBytes)
	}

	doc := &Document{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(doc)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(doc)
		if err == io.EOF {
			err = nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidDocument, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidDocument, format, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode writes a document.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: unknown format %q", ErrInvalidDocument, format)
}

// LoadFile decodes the document at path.
func LoadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map %s: %w", path, err)
	}
	defer f.Close()

	doc, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("load map %s: %w", path, err)
	}
	return doc, nil
}
