package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Codec converts a ledger mapping to and from its on-disk encoding.
type Codec interface {
	Marshal(map[uint16]string) ([]byte, error)
	Unmarshal([]byte) (map[uint16]string, error)
}

// CodecFor picks the codec from the file extension. Unknown or missing
// extensions use JSON.
func CodecFor(path string) (Codec, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", "":
		return jsonCodec{}, nil
	case ".yaml", ".yml":
		return yamlCodec{}, nil
	case ".toml":
		return tomlCodec{}, nil
	case ".cbor":
		return cborCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported ledger file extension %q (want .json, .yaml, .toml or .cbor)", ext)
	}
}

type jsonCodec struct{}

func (jsonCodec) Marshal(m map[uint16]string) ([]byte, error) {
	data, err := json.MarshalIndent(nonNil(m), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (jsonCodec) Unmarshal(data []byte) (map[uint16]string, error) {
	var m map[uint16]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return nonNil(m), nil
}

type yamlCodec struct{}

func (yamlCodec) Marshal(m map[uint16]string) ([]byte, error) {
	return yaml.Marshal(nonNil(m))
}

func (yamlCodec) Unmarshal(data []byte) (map[uint16]string, error) {
	var m map[uint16]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return nonNil(m), nil
}

// tomlDocument nests the mapping under a table because TOML keys are strings
// and a document cannot be a bare map of numbers.
type tomlDocument struct {
	Reservations map[string]string `toml:"reservations"`
}

type tomlCodec struct{}

func (tomlCodec) Marshal(m map[uint16]string) ([]byte, error) {
	doc := tomlDocument{Reservations: make(map[string]string, len(m))}
	for port, service := range m {
		doc.Reservations[strconv.Itoa(int(port))] = service
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tomlCodec) Unmarshal(data []byte) (map[uint16]string, error) {
	var doc tomlDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	m := make(map[uint16]string, len(doc.Reservations))
	for key, service := range doc.Reservations {
		port, err := strconv.ParseUint(key, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", key, err)
		}
		m[uint16(port)] = service
	}
	return m, nil
}

var cborEncMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
	return mode
}()

type cborCodec struct{}

func (cborCodec) Marshal(m map[uint16]string) ([]byte, error) {
	return cborEncMode.Marshal(nonNil(m))
}

func (cborCodec) Unmarshal(data []byte) (map[uint16]string, error) {
	var m map[uint16]string
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return nonNil(m), nil
}

func nonNil(m map[uint16]string) map[uint16]string {
	if m == nil {
		return map[uint16]string{}
	}
	return m
}
