package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/artprovider/internal/artwork"
)

// readArtworkFile decodes a YAML or JSON document holding one artwork or
// a list of them. "-" reads from stdin.
func readArtworkFile(path string, stdin io.Reader) ([]artwork.Artwork, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	switch doc.Content[0].Kind {
	case yaml.SequenceNode:
		var arts []artwork.Artwork
		if err := dec.Decode(&arts); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return arts, nil
	case yaml.MappingNode:
		var a artwork.Artwork
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return []artwork.Artwork{a}, nil
	default:
		return nil, fmt.Errorf("decode %s: %w", path, errors.New("expected an artwork mapping or a list of them"))
	}
}

// readArtworkFiles concatenates the artwork of every file in order.
func readArtworkFiles(paths []string, stdin io.Reader) ([]artwork.Artwork, error) {
	var all []artwork.Artwork
	for _, p := range paths {
		arts, err := readArtworkFile(p, stdin)
		if err != nil {
			return nil, err
		}
		all = append(all, arts...)
	}
	return all, nil
}
