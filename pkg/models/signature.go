package models

import (
	"fmt"
	"strings"
)

// MethodSignature identifies a method by its declaring type, name, ordered parameter
// types and return type.
type MethodSignature struct {
	DeclaringType string   `json:"declaring_type" yaml:"declaring_type"`
	Name          string   `json:"name" yaml:"name"`
	Params        []string `json:"params,omitempty" yaml:"params,omitempty"`
	ReturnType    string   `json:"return_type" yaml:"return_type"`
}

// String renders the signature as <DeclaringType: ReturnType Name(params)>.
// Source-form parameters are comma separated; a list made only of JVM descriptors
// is rendered as written in a method descriptor, without separators.
// This is the rendering used for dataset columns.
func (m MethodSignature) String() string {
	sep := ","
	if allDescriptors(m.Params) {
		sep = ""
	}
	return fmt.Sprintf("<%s: %s %s(%s)>", m.DeclaringType, m.ReturnType, m.Name, strings.Join(m.Params, sep))
}

// Key renders the signature with every JVM type descriptor converted to its source
// form, so that signatures coming from the permission mapping (descriptor form) and
// from the analysis engine (source form) compare equal.
func (m MethodSignature) Key() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = DescriptorToType(p)
	}
	return fmt.Sprintf("<%s: %s %s(%s)>", DescriptorToType(m.DeclaringType), DescriptorToType(m.ReturnType), m.Name, strings.Join(params, ","))
}

// ShortClassName returns the declaring type without its package.
func (m MethodSignature) ShortClassName() string {
	return ShortTypeName(m.DeclaringType)
}

// ParseSignature parses the <DeclaringType: ReturnType Name(p1,p2)> form.
// Anything after the closing '>' (for example " -> _SINK_") is ignored.
func ParseSignature(s string) (MethodSignature, error) {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "<")
	end := strings.LastIndex(s, ">")
	if start < 0 || end <= start {
		return MethodSignature{}, fmt.Errorf("malformed method signature %q", s)
	}
	body := s[start+1 : end]
	// Nested '>' belongs to a later part (e.g. "<a: void b()> -> <c>"), keep the first block.
	if idx := strings.Index(body, ")>"); idx >= 0 {
		body = body[:idx+1]
	}

	colon := strings.Index(body, ": ")
	if colon < 0 {
		return MethodSignature{}, fmt.Errorf("missing declaring type separator in %q", s)
	}
	declaring := strings.TrimSpace(body[:colon])
	rest := strings.TrimSpace(body[colon+2:])

	open := strings.Index(rest, "(")
	closing := strings.LastIndex(rest, ")")
	if open < 0 || closing < open {
		return MethodSignature{}, fmt.Errorf("missing parameter list in %q", s)
	}
	head := strings.TrimSpace(rest[:open])
	space := strings.LastIndex(head, " ")
	if space < 0 {
		return MethodSignature{}, fmt.Errorf("missing return type in %q", s)
	}

	sig := MethodSignature{
		DeclaringType: declaring,
		ReturnType:    strings.TrimSpace(head[:space]),
		Name:          strings.TrimSpace(head[space+1:]),
	}
	if params := strings.TrimSpace(rest[open+1 : closing]); params != "" {
		for _, p := range strings.Split(params, ",") {
			sig.Params = append(sig.Params, strings.TrimSpace(p))
		}
	}
	if sig.DeclaringType == "" || sig.Name == "" {
		return MethodSignature{}, fmt.Errorf("incomplete method signature %q", s)
	}
	return sig, nil
}

// ParseDescriptorParams splits a parameter list as it appears between the parentheses
// of a method descriptor. Comma separated source-form lists are split on commas;
// descriptor lists such as "ILjava/lang/String;[B" are split per type.
func ParseDescriptorParams(params string) []string {
	params = strings.TrimSpace(params)
	if params == "" {
		return nil
	}
	if !strings.Contains(params, ",") && !strings.Contains(params, ".") {
		if out, ok := splitDescriptors(params); ok {
			return out
		}
	}

	var out []string
	for _, p := range strings.Split(params, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitDescriptors(params string) ([]string, bool) {
	var out []string
	for i := 0; i < len(params); {
		start := i
		for i < len(params) && params[i] == '[' {
			i++
		}
		if i >= len(params) {
			return nil, false
		}
		switch c := params[i]; {
		case c == 'L':
			semi := strings.IndexByte(params[i:], ';')
			if semi < 0 {
				return nil, false
			}
			i += semi + 1
		case primitiveDescriptors[c] != "" && c != 'V':
			i++
		default:
			return nil, false
		}
		out = append(out, params[start:i])
	}
	return out, true
}

var primitiveDescriptors = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}

// DescriptorToType converts a single JVM type descriptor to its source form.
// Values that are not descriptors are returned unchanged.
func DescriptorToType(desc string) string {
	desc = strings.TrimSpace(desc)
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	elem := desc[dims:]

	var base string
	switch {
	case len(elem) == 1:
		p, ok := primitiveDescriptors[elem[0]]
		if !ok {
			return desc
		}
		base = p
	case len(elem) > 2 && elem[0] == 'L' && strings.HasSuffix(elem, ";"):
		base = strings.ReplaceAll(elem[1:len(elem)-1], "/", ".")
	default:
		return desc
	}
	return base + strings.Repeat("[]", dims)
}

// IsDescriptor reports whether a type is written as a JVM descriptor.
func IsDescriptor(typeName string) bool {
	typeName = strings.TrimSpace(typeName)
	return typeName != "" && DescriptorToType(typeName) != typeName
}

func allDescriptors(types []string) bool {
	for _, t := range types {
		if !IsDescriptor(t) {
			return false
		}
	}
	return len(types) > 0
}

// ShortTypeName strips the package part of a fully qualified type name.
func ShortTypeName(typeName string) string {
	if idx := strings.LastIndex(typeName, "."); idx >= 0 {
		return typeName[idx+1:]
	}
	return typeName
}
