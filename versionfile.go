package branchver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"
)

// FileFormat is the encoding of a version file
type FileFormat int

const (
	FormatText FileFormat = iota
	FormatJSON
	FormatYAML
)

func (f FileFormat) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "text"
	}
}

// DetectFormat picks the file format from the file extension
func DetectFormat(filename string) FileFormat {
	switch strings.ToLower(path.Ext(filename)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// VersionFile reads and rewrites the version stored in a project file.
// Plain text files hold only the version; package.json style JSON files and
// YAML files hold it under a top-level "version" key.
type VersionFile struct {
	fs     billy.Filesystem
	path   string
	format FileFormat
}

// NewVersionFile returns a VersionFile for path within fs
func NewVersionFile(fs billy.Filesystem, path string) *VersionFile {
	return &VersionFile{
		fs:     fs,
		path:   path,
		format: DetectFormat(path),
	}
}

// Path returns the file's path within its filesystem
func (f *VersionFile) Path() string {
	return f.path
}

// Format returns the detected file format
func (f *VersionFile) Format() FileFormat {
	return f.format
}

// Read returns the version stored in the file
func (f *VersionFile) Read() (string, error) {
	data, err := f.readAll()
	if err != nil {
		return "", err
	}

	switch f.format {
	case FormatJSON:
		var doc struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("decoding %s: %w", f.path, err)
		}
		return strings.TrimSpace(doc.Version), nil

	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("decoding %s: %w", f.path, err)
		}
		if node := yamlVersionNode(&doc); node != nil {
			return strings.TrimSpace(node.Value), nil
		}
		return "", nil

	default:
		return strings.TrimSpace(string(data)), nil
	}
}

// Write replaces the version stored in the file. The file must already
// exist; its permissions are preserved.
func (f *VersionFile) Write(version string) error {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingVersionFile, f.path)
		}
		return fmt.Errorf("checking %s: %w", f.path, err)
	}

	data, err := f.readAll()
	if err != nil {
		return err
	}

	var updated []byte
	switch f.format {
	case FormatJSON:
		updated, err = replaceJSONVersion(data, version)
	case FormatYAML:
		updated, err = replaceYAMLVersion(data, version)
	default:
		updated = []byte(version + "\n")
	}
	if err != nil {
		return fmt.Errorf("updating %s: %w", f.path, err)
	}

	if err := util.WriteFile(f.fs, f.path, updated, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	return nil
}

func (f *VersionFile) readAll() ([]byte, error) {
	data, err := util.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingVersionFile, f.path)
		}
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}
	return data, nil
}

// replaceJSONVersion rewrites the top-level "version" value in place so the
// rest of the document keeps its formatting.
func replaceJSONVersion(data []byte, version string) ([]byte, error) {
	start, end, err := jsonVersionSpan(data)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(version)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + len(encoded))
	buf.Write(data[:start])
	buf.Write(encoded)
	buf.Write(data[end:])
	return buf.Bytes(), nil
}

// jsonVersionSpan returns the byte range, quotes included, of the string
// value of the top-level "version" key. Nested objects are skipped whole.
func jsonVersionSpan(data []byte) (int, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return 0, 0, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return 0, 0, fmt.Errorf("top-level JSON value is not an object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, err
		}
		key, _ := tok.(string)

		if key != "version" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return 0, 0, err
			}
			continue
		}

		// The offset sits just past the key; the value follows the colon
		afterKey := int(dec.InputOffset())
		tok, err = dec.Token()
		if err != nil {
			return 0, 0, err
		}
		if _, ok := tok.(string); !ok {
			return 0, 0, fmt.Errorf("top-level \"version\" field is not a string")
		}

		end := int(dec.InputOffset())
		quote := bytes.IndexByte(data[afterKey:end], '"')
		if quote < 0 {
			return 0, 0, fmt.Errorf("locating \"version\" value")
		}
		return afterKey + quote, end, nil
	}

	return 0, 0, fmt.Errorf("no top-level \"version\" field found")
}

func replaceYAMLVersion(data []byte, version string) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if doc.Kind == 0 {
		// Empty document
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}
	}

	if node := yamlVersionNode(&doc); node != nil {
		node.Value = version
		node.Tag = "!!str"
		node.Style = 0
	} else {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("top-level YAML value is not a mapping")
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "version"},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: version},
		)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// yamlVersionNode returns the value node of the top-level version key
func yamlVersionNode(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "version" {
			return root.Content[i+1]
		}
	}
	return nil
}
