package config

import (
	"bytes"
	"errors"
	"io"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// decodeYAML decodes a sweet.yaml file. Unknown keys are rejected.
func decodeYAML(path string, data []byte) (*Buildfile, error) {
	var bf Buildfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&bf); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "file", path)
	}
	return &bf, nil
}

// Variables are the values visible to expressions in a sweet.hcl file.
type Variables struct {
	// Root is the absolute project root.
	Root string
	// Dir is the absolute directory of the buildfile.
	Dir string
}

func (v Variables) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"root": cty.StringVal(v.Root),
			"dir":  cty.StringVal(v.Dir),
		},
	}
}

// decodeHCL decodes a sweet.hcl file into the same shape as a YAML buildfile.
func decodeHCL(path string, data []byte, vars Variables) (*Buildfile, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, zerr.With(zerr.Wrap(diags, domain.ErrConfigParseFailed.Error()), "file", path)
	}

	var parsed hclBuildfile
	if diags := gohcl.DecodeBody(file.Body, vars.evalContext(), &parsed); diags.HasErrors() {
		return nil, zerr.With(zerr.Wrap(diags, domain.ErrConfigParseFailed.Error()), "file", path)
	}

	bf := &Buildfile{
		Prototypes: make(map[string]*PrototypeDTO, len(parsed.Prototypes)),
		Targets:    make(map[string]*TargetDTO, len(parsed.Targets)),
		Default:    parsed.Default,
		Include:    parsed.Include,
	}
	for _, p := range parsed.Prototypes {
		if _, dup := bf.Prototypes[p.Name]; dup {
			return nil, zerr.With(zerr.With(domain.ErrConfigParseFailed, "file", path), "prototype", p.Name)
		}
		bf.Prototypes[p.Name] = &PrototypeDTO{
			Command:     p.Command,
			Depfile:     p.Depfile,
			Environment: p.Environment,
			Phony:       p.Phony,
			Always:      p.Always,
		}
	}
	for _, t := range parsed.Targets {
		if _, dup := bf.Targets[t.ID]; dup {
			return nil, zerr.With(zerr.With(domain.ErrConfigParseFailed, "file", path), "target", t.ID)
		}
		bf.Targets[t.ID] = &TargetDTO{
			Prototype:    t.Prototype,
			Dependencies: t.Dependencies,
			Required:     t.Required,
			Cleanable:    t.Cleanable,
		}
	}
	return bf, nil
}
