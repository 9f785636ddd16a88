package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Stdin is the document path meaning standard input.
const Stdin = "-"

// ReadDocument reads a JSON or YAML document from path, or from stdin when
// path is "-".
func ReadDocument(path string, stdin io.Reader) (any, error) {
	var (
		data []byte
		err  error
	)
	if path == Stdin {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := DecodeDocument(data)
	if err != nil && path != Stdin {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, err
}

// DecodeDocument decodes data as JSON when it starts like JSON, as YAML
// otherwise. JSON numbers become float64, YAML ones keep their integer type.
func DecodeDocument(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	var doc any
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON document: %w", err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML document: %w", err)
	}
	return doc, nil
}
