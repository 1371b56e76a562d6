// Package treeio reads and writes UAST trees: JSON or YAML documents,
// optionally LZ4-framed, checked against the embedded UAST schema.
package treeio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/safeconv"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/uast/pkg/node"
)

// Format is a document encoding.
type Format string

// Supported formats.
const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// Default read limit of a decompressed document.
const DefaultMaxBytes int64 = 64 << 20

// Sentinel errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyTree         = errors.New("document holds no tree")
	ErrTooLarge          = errors.New("document exceeds the size limit")
	ErrEmptyPath         = errors.New("path is empty")
	ErrInvalidTree       = errors.New("tree violates the UAST schema")
)

// ParseFormat maps a name ("json", "yaml", "yml") to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatOf infers the format of path from its extension, looking through a
// trailing ".lz4". The second result reports LZ4 framing.
func FormatOf(path string) (Format, bool, error) {
	compressed := strings.EqualFold(filepath.Ext(path), ".lz4")
	if compressed {
		path = strings.TrimSuffix(path, filepath.Ext(path))
	}

	format, err := ParseFormat(filepath.Ext(path))

	return format, compressed, err
}

// Document is a decoded input: the tree plus the raw value the schema is
// checked against.
type Document struct {
	Root  *node.Node
	value any
}

// Decode reads one tree of the given format from r, reading at most
// maxBytes (DefaultMaxBytes when not positive).
func Decode(r io.Reader, format Format, maxBytes int64) (*Document, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}

	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: more than %s", ErrTooLarge, humanize.IBytes(safeconv.MustInt64ToUint64(maxBytes)))
	}

	doc := &Document{}

	switch format {
	case JSON:
		err = decodeJSON(data, doc)
	case YAML:
		err = decodeYAML(data, doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err != nil {
		return nil, err
	}

	if doc.Root == nil || doc.Root.Type == "" {
		return nil, ErrEmptyTree
	}

	return doc, nil
}

// FromTree wraps a tree decoded elsewhere, such as from a request body,
// so that it can be validated like a decoded file.
func FromTree(root *node.Node) (*Document, error) {
	if root == nil || root.Type == "" {
		return nil, ErrEmptyTree
	}

	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}

	doc := &Document{Root: root}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&doc.value); err != nil {
		return nil, fmt.Errorf("decode json tree: %w", err)
	}

	return doc, nil
}

func decodeJSON(data []byte, doc *Document) error {
	if err := json.Unmarshal(data, &doc.Root); err != nil {
		return fmt.Errorf("decode json tree: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&doc.value); err != nil {
		return fmt.Errorf("decode json tree: %w", err)
	}

	return nil
}

func decodeYAML(data []byte, doc *Document) error {
	if err := yaml.Unmarshal(data, &doc.Root); err != nil {
		return fmt.Errorf("decode yaml tree: %w", err)
	}

	if err := yaml.Unmarshal(data, &doc.value); err != nil {
		return fmt.Errorf("decode yaml tree: %w", err)
	}

	return nil
}

// ReadFile decodes the tree stored at path; see FormatOf.
func ReadFile(path string, maxBytes int64) (*Document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	format, compressed, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		r = lz4.NewReader(f)
	}

	doc, err := Decode(r, format, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Encode writes v in the given format.
func Encode(w io.Writer, v any, format Format) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return nil
}

// WriteLZ4 writes v in the given format inside an LZ4 frame.
func WriteLZ4(w io.Writer, v any, format Format) error {
	zw := lz4.NewWriter(w)

	if err := Encode(zw, v, format); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("close lz4 frame: %w", err)
	}

	return nil
}
