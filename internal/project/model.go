// Package project decodes model.yaml files: the types and declarations of a
// compilation, their source bodies, and the transformations that aspect
// layers apply to them.
package project

import "gopkg.in/yaml.v3"

// Model is the top level of a model.yaml file.
//
//	aspects:
//	  - name: CacheAttribute
//	    layers: ["", build]
//	types:
//	  - name: Calc
//	    members:
//	      - name: Add
//	        returns: int
//	        params: [int a, int b]
//	        body: |
//	          return a + b;
//	transformations:
//	  - layer: TraceAttribute
//	    override: Calc.Add
//	    body: |
//	      Console.WriteLine("enter");
//	      return proceed();
type Model struct {
	Aspects         []AspectSpec         `yaml:"aspects,omitempty"`
	Types           []TypeSpec           `yaml:"types"`
	Transformations []TransformationSpec `yaml:"transformations,omitempty"`
}

// AspectSpec declares the layers of an aspect, innermost first. Aspects not
// listed have the single default layer.
type AspectSpec struct {
	Name   string   `yaml:"name"`
	Layers []string `yaml:"layers"`
}

type TypeSpec struct {
	Name       string       `yaml:"name"`
	Base       string       `yaml:"base,omitempty"`
	Interface  bool         `yaml:"interface,omitempty"`
	Interfaces []string     `yaml:"interfaces,omitempty"`
	Members    []MemberSpec `yaml:"members,omitempty"`
}

// MemberSpec is a method, property or event. Keys other than the named fields
// hold source bodies by accessor: body, get, set, add, remove.
type MemberSpec struct {
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind,omitempty"` // method (default), property, event
	Visibility string   `yaml:"visibility,omitempty"`
	Modifiers  []string `yaml:"modifiers,omitempty"` // static virtual override new partial auto
	Shape      string   `yaml:"shape,omitempty"`     // inferred from returns when empty
	Returns    string   `yaml:"returns,omitempty"`
	Result     string   `yaml:"result,omitempty"` // inferred from returns when empty
	Params     []string `yaml:"params,omitempty"` // "type name"
	Accessors  []string `yaml:"accessors,omitempty"`

	Bodies map[string]yaml.Node `yaml:",inline"`
}

// TransformationSpec is one transformation. Exactly one of Override,
// Introduce, Redirect and Proxy is set.
type TransformationSpec struct {
	Layer    string `yaml:"layer"`           // Aspect or Aspect:layer
	Order    *int   `yaml:"order,omitempty"` // Declaration-site order; defaults to first appearance of the aspect
	Override string `yaml:"override,omitempty"`

	Introduce *IntroduceSpec `yaml:"introduce,omitempty"`
	Policy    string         `yaml:"policy,omitempty"`

	Redirect string   `yaml:"redirect,omitempty"`
	To       string   `yaml:"to,omitempty"`
	Receiver string   `yaml:"receiver,omitempty"`
	Only     []string `yaml:"only,omitempty"`

	Proxy     string `yaml:"proxy,omitempty"`
	Interface string `yaml:"interface,omitempty"`
	Member    string `yaml:"member,omitempty"`

	Bodies map[string]yaml.Node `yaml:",inline"`
}

type IntroduceSpec struct {
	Type   string     `yaml:"type"`
	Member MemberSpec `yaml:"member"`
}
