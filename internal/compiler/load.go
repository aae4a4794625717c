package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/promotions/internal/ir"
)

// Document is the YAML/JSON file shape holding promotion definitions.
type Document struct {
	Promotions []ir.Promotion `yaml:"promotions"`
}

// ParseDocument decodes a YAML or JSON document of promotions.
// Unknown fields are rejected.
func ParseDocument(data []byte) ([]ir.Promotion, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return []ir.Promotion{}, nil
		}
		return nil, fmt.Errorf("parse promotions: %w", err)
	}
	if doc.Promotions == nil {
		return []ir.Promotion{}, nil
	}
	return doc.Promotions, nil
}

// CompileCUE compiles every promotion under the top-level "promotion"
// struct of a CUE source, in declaration order.
func CompileCUE(filename string, src []byte) ([]ir.Promotion, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	promotions := []ir.Promotion{}
	promoVal := v.LookupPath(cue.ParsePath("promotion"))
	if !promoVal.Exists() {
		return promotions, nil
	}

	iter, err := promoVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		p, err := CompilePromotion(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("promotion %s: %w", iter.Selector(), err)
		}
		promotions = append(promotions, *p)
	}
	return promotions, nil
}

// LoadFile reads promotions from a .cue, .yaml, .yml or .json file.
func LoadFile(path string) ([]ir.Promotion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return CompileCUE(path, data)
	case ".yaml", ".yml", ".json":
		return ParseDocument(data)
	default:
		return nil, fmt.Errorf("%s: unsupported file type (want .cue, .yaml, .yml or .json)", path)
	}
}
