package domain

import (
	"strings"
)

// Prototype is a rule shared by every target bound to it.
// Command arguments and the depfile path may reference $in (all explicit
// dependencies), $out (the target path) and $dir (the target's directory).
type Prototype struct {
	Name        InternedString
	Command     []string
	Depfile     string
	Environment map[string]string
	Flags       Flags
}

// NewPrototype creates a prototype with the given name and command.
func NewPrototype(name string, command ...string) *Prototype {
	return &Prototype{
		Name:    NewInternedString(name),
		Command: command,
	}
}

// Command is a fully expanded invocation of a prototype for one target.
type Command struct {
	Args []string
	Dir  string
	Env  map[string]string
}

// String renders the command as a shell-like line.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// Project is the result of loading a buildfile into a graph.
type Project struct {
	// Root is the absolute directory the graph is rooted at.
	Root string
	// Files lists the buildfiles that were read, in load order.
	Files []string
	// Defaults are the goals built when none are given on the command line.
	Defaults []string
}
