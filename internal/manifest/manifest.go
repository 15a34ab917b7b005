// Package manifest encodes weaving results for tools that consume the
// output of a pass without linking against the weaver. The manifest is a
// google.protobuf.Struct, written either as deterministic binary protobuf or
// as JSON.
package manifest

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/funvibe/weaver/internal/prettyprinter"
	"github.com/funvibe/weaver/internal/weaver"
)

const Version = "v1"

// Build converts the output of a pass into a manifest.
func Build(out *weaver.Output) (*structpb.Struct, error) {
	results := make([]interface{}, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, result(r))
	}
	s, err := structpb.NewStruct(map[string]interface{}{
		"version": Version,
		"results": results,
	})
	if err != nil {
		return nil, fmt.Errorf("building manifest: %w", err)
	}
	return s, nil
}

func result(r *weaver.WeavingResult) map[string]interface{} {
	m := map[string]interface{}{
		"declaration": r.Qualified,
		"type":        r.Type,
		"status":      r.Status.String(),
		"layers":      list(r.Layers),
		"inlined":     list(r.Inlined),
	}
	if r.Status == weaver.StatusWoven {
		m["fingerprint"] = r.Fingerprint.String()
	}
	if r.SourceRenamedTo != "" {
		m["source_renamed_to"] = r.SourceRenamedTo
	}
	members := make([]interface{}, 0, len(r.Members))
	for _, em := range r.Members {
		members = append(members, member(em))
	}
	m["members"] = members
	diags := make([]interface{}, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		diags = append(diags, map[string]interface{}{
			"code":     string(d.Code),
			"severity": d.Severity.String(),
			"layer":    d.Layer,
			"message":  d.Message,
		})
	}
	m["diagnostics"] = diags
	return m
}

func member(em *weaver.EmittedMember) map[string]interface{} {
	params := make([]interface{}, 0, len(em.Params))
	for _, p := range em.Params {
		params = append(params, map[string]interface{}{"name": p.Name, "type": p.Type})
	}
	accessors := make(map[string]interface{})
	for _, a := range em.Accessors() {
		accessors[a.String()] = prettyprinter.PrintBlock(em.Bodies[a])
	}
	m := map[string]interface{}{
		"name":        em.Name,
		"role":        em.Role.String(),
		"kind":        em.Kind.String(),
		"visibility":  em.Visibility,
		"static":      em.Static,
		"async":       em.Async,
		"return_type": em.ReturnType,
		"params":      params,
		"accessors":   accessors,
		"source":      prettyprinter.PrintMember(em),
	}
	if em.Interface != "" {
		m["interface"] = em.Interface
	}
	if em.Layer != "" {
		m["layer"] = em.Layer
	}
	return m
}

func list(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Encode returns the manifest as binary protobuf. Equal outputs encode to
// equal bytes.
func Encode(out *weaver.Output) ([]byte, error) {
	s, err := Build(out)
	if err != nil {
		return nil, err
	}
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}

// Decode parses a manifest written by Encode.
func Decode(data []byte) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}
	if v := s.GetFields()["version"].GetStringValue(); v != Version {
		return nil, fmt.Errorf("manifest version %q, want %q", v, Version)
	}
	return s, nil
}

// JSON returns the manifest as indented JSON.
func JSON(out *weaver.Output) ([]byte, error) {
	s, err := Build(out)
	if err != nil {
		return nil, err
	}
	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return data, nil
}
