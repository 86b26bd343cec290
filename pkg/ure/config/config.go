package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/ure/pkg/ure/atom"
	"github.com/cognicore/ure/pkg/ure/chainer"
	"github.com/cognicore/ure/pkg/ure/internalerr"
	"github.com/cognicore/ure/pkg/ure/result"
	"github.com/cognicore/ure/pkg/ure/unify"
)

// File is the YAML document describing rule bases, facts and chainer
// settings. Atoms are written as s-expressions.
type File struct {
	Types     []TypeDef     `yaml:"types"`
	RuleBases []RuleBaseDef `yaml:"rulebases"`
	Facts     []FactDef     `yaml:"facts"`
	Chainer   ChainerDef    `yaml:"chainer"`
	Goal      *GoalDef      `yaml:"goal"`
}

// TypeDef registers an atom type beyond the built-in ones.
type TypeDef struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

// RuleBaseDef is a named rule collection.
type RuleBaseDef struct {
	Name  string    `yaml:"name"`
	Rules []RuleDef `yaml:"rules"`
}

// RuleDef is one rule. Variables are written "$x:Type1|Type2"; leaving
// them out makes every variable unconstrained.
type RuleDef struct {
	Name       string   `yaml:"name"`
	Weight     float64  `yaml:"weight"`
	Formula    string   `yaml:"formula"`
	Variables  []string `yaml:"variables"`
	Premises   []string `yaml:"premises"`
	Conclusion string   `yaml:"conclusion"`
}

// FactDef is a stored atom with its [strength, confidence].
type FactDef struct {
	Atom string    `yaml:"atom"`
	TV   []float64 `yaml:"tv"`
}

// GoalDef is the default query. Without variables the declaration is
// unconstrained; an empty list declares a ground goal.
type GoalDef struct {
	Atom      string   `yaml:"atom"`
	Variables []string `yaml:"variables"`
}

// ChainerDef holds the search settings. Zero values keep the chainer
// defaults.
type ChainerDef struct {
	RuleBase              string  `yaml:"rulebase"`
	MaxDepth              int     `yaml:"max_depth"`
	MaxIterations         int     `yaml:"max_iterations"`
	ConfidenceThreshold   float64 `yaml:"confidence_threshold"`
	ConjunctionFormula    string  `yaml:"conjunction_formula"`
	Policy                string  `yaml:"policy"`
	Exhaustive            bool    `yaml:"exhaustive"`
	IncludeFacts          bool    `yaml:"include_facts"`
	VirtualAcceptStrength float64 `yaml:"virtual_accept_strength"`
	Workers               int     `yaml:"workers"`
}

// Options converts the settings into chainer options.
func (c ChainerDef) Options() (chainer.Options, error) {
	policy, err := result.ParsePolicy(c.Policy)
	if err != nil {
		return chainer.Options{}, fmt.Errorf("chainer: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	return chainer.Options{
		MaxDepth:              c.MaxDepth,
		MaxIterations:         c.MaxIterations,
		ConfidenceThreshold:   c.ConfidenceThreshold,
		ConjunctionFormula:    c.ConjunctionFormula,
		Policy:                policy,
		Exhaustive:            c.Exhaustive,
		IncludeFacts:          c.IncludeFacts,
		VirtualAcceptStrength: c.VirtualAcceptStrength,
		Workers:               c.Workers,
	}, nil
}

// LoadFile reads a configuration file from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return &f, nil
}

// ParseDecl builds a typed declaration from "$x:Type" entries, checked
// against reg.
func ParseDecl(reg *atom.TypeRegistry, entries []string) (*unify.VarDecl, error) {
	decls := make([]unify.Decl, 0, len(entries))
	for _, e := range entries {
		d, err := unify.ParseDecl(e)
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	decl := unify.TypedWith(reg, decls...)
	if err := decl.Validate(); err != nil {
		return nil, err
	}
	return decl, nil
}
