package config

// Buildfile is the decoded form of a sweet.yaml or sweet.hcl file.
type Buildfile struct {
	Prototypes map[string]*PrototypeDTO `yaml:"prototypes"`
	Targets    map[string]*TargetDTO    `yaml:"targets"`
	Default    []string                 `yaml:"default"`
	Include    []string                 `yaml:"include"`
}

// PrototypeDTO represents a prototype definition in the configuration.
type PrototypeDTO struct {
	Command     []string          `yaml:"command"`
	Depfile     string            `yaml:"depfile"`
	Environment map[string]string `yaml:"environment"`
	Phony       bool              `yaml:"phony"`
	Always      bool              `yaml:"always"`
}

// TargetDTO represents a target declaration in the configuration.
// A target without a prototype is a source file.
type TargetDTO struct {
	Prototype    string   `yaml:"prototype"`
	Dependencies []string `yaml:"dependencies"`
	Required     bool     `yaml:"required"`
	Cleanable    *bool    `yaml:"cleanable"`
}

type hclBuildfile struct {
	Default    []string        `hcl:"default,optional"`
	Include    []string        `hcl:"include,optional"`
	Prototypes []*hclPrototype `hcl:"prototype,block"`
	Targets    []*hclTarget    `hcl:"target,block"`
}

type hclPrototype struct {
	Name        string            `hcl:"name,label"`
	Command     []string          `hcl:"command"`
	Depfile     string            `hcl:"depfile,optional"`
	Environment map[string]string `hcl:"environment,optional"`
	Phony       bool              `hcl:"phony,optional"`
	Always      bool              `hcl:"always,optional"`
}

type hclTarget struct {
	ID           string   `hcl:"id,label"`
	Prototype    string   `hcl:"prototype,optional"`
	Dependencies []string `hcl:"dependencies,optional"`
	Required     bool     `hcl:"required,optional"`
	Cleanable    *bool    `hcl:"cleanable,optional"`
}
