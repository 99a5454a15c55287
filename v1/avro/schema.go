package avro

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the variant of a Schema node.
type Kind int

const (
	Null Kind = iota
	Boolean
	Int
	Long
	Float
	Double
	Bytes
	String
	Record
	Enum
	Fixed
	Array
	Map
	Union
	// Ref is a by-name reference to an earlier named type. This is how
	// self-referential schemas are expressed without a cyclic ownership
	// structure: the referenced node is reachable through Target only.
	Ref
)

var kindNames = map[Kind]string{
	Null:    "null",
	Boolean: "boolean",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	Bytes:   "bytes",
	String:  "string",
	Record:  "record",
	Enum:    "enum",
	Fixed:   "fixed",
	Array:   "array",
	Map:     "map",
	Union:   "union",
	Ref:     "ref",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Schema is one node of a parsed Avro schema tree. Which fields are
// meaningful depends on Kind. Schemas are immutable after Parse and safe
// to share across goroutines.
type Schema struct {
	Kind Kind

	// Name is the namespace-qualified name for Record, Enum, Fixed and Ref.
	Name string

	// Fields is set for Record, in writer-declared order.
	Fields []Field

	// Symbols is set for Enum.
	Symbols []string

	// Size is set for Fixed.
	Size int

	// Items is set for Array.
	Items *Schema

	// Values is set for Map.
	Values *Schema

	// Branches is set for Union, in declared order.
	Branches []*Schema

	// Target is set for Ref and points at the referenced named node.
	Target *Schema
}

// Field is one record field: a name and its child schema.
type Field struct {
	Name   string
	Schema *Schema
}

// Resolve follows a Ref node to its named target. For every other kind it
// returns the node itself.
func (s *Schema) Resolve() *Schema {
	if s.Kind == Ref {
		return s.Target
	}
	return s
}

var primitives = map[string]Kind{
	"null":    Null,
	"boolean": Boolean,
	"int":     Int,
	"long":    Long,
	"float":   Float,
	"double":  Double,
	"bytes":   Bytes,
	"string":  String,
}

// Parse parses an Avro JSON schema document into a Schema tree.
//
// Named types (record, enum, fixed) are registered under their
// namespace-qualified full name; a later occurrence of that name parses to
// a Ref node resolving to the original definition, which is how recursive
// schemas terminate. An unknown type name or a duplicate named-type
// definition is an error.
func Parse(text string) (*Schema, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}

	p := &schemaParser{named: make(map[string]*Schema)}
	schema, err := p.parse(raw, "")
	if err != nil {
		return nil, err
	}
	return schema, nil
}

type schemaParser struct {
	named map[string]*Schema
}

func (p *schemaParser) parse(raw interface{}, namespace string) (*Schema, error) {
	switch v := raw.(type) {
	case string:
		return p.parseName(v, namespace)
	case []interface{}:
		return p.parseUnion(v, namespace)
	case map[string]interface{}:
		return p.parseObject(v, namespace)
	default:
		return nil, fmt.Errorf("unexpected schema element of type %T", raw)
	}
}

func (p *schemaParser) parseName(name, namespace string) (*Schema, error) {
	if kind, ok := primitives[name]; ok {
		return &Schema{Kind: kind}, nil
	}
	full := qualify(name, namespace)
	if target, ok := p.named[full]; ok {
		return &Schema{Kind: Ref, Name: full, Target: target}, nil
	}
	return nil, fmt.Errorf("unknown type name %q", full)
}

func (p *schemaParser) parseUnion(branches []interface{}, namespace string) (*Schema, error) {
	if len(branches) == 0 {
		return nil, fmt.Errorf("union must declare at least one branch")
	}
	schema := &Schema{Kind: Union, Branches: make([]*Schema, 0, len(branches))}
	for i, branch := range branches {
		child, err := p.parse(branch, namespace)
		if err != nil {
			return nil, fmt.Errorf("union branch %d: %w", i, err)
		}
		schema.Branches = append(schema.Branches, child)
	}
	return schema, nil
}

func (p *schemaParser) parseObject(obj map[string]interface{}, namespace string) (*Schema, error) {
	typeName, ok := obj["type"].(string)
	if !ok {
		return nil, fmt.Errorf("schema object missing string \"type\"")
	}

	switch typeName {
	case "record":
		return p.parseRecord(obj, namespace)
	case "enum":
		return p.parseEnum(obj, namespace)
	case "fixed":
		return p.parseFixed(obj, namespace)
	case "array":
		items, ok := obj["items"]
		if !ok {
			return nil, fmt.Errorf("array schema missing \"items\"")
		}
		child, err := p.parse(items, namespace)
		if err != nil {
			return nil, fmt.Errorf("array items: %w", err)
		}
		return &Schema{Kind: Array, Items: child}, nil
	case "map":
		values, ok := obj["values"]
		if !ok {
			return nil, fmt.Errorf("map schema missing \"values\"")
		}
		child, err := p.parse(values, namespace)
		if err != nil {
			return nil, fmt.Errorf("map values: %w", err)
		}
		return &Schema{Kind: Map, Values: child}, nil
	default:
		// {"type": "long"} and friends are legal spellings of primitives,
		// as is {"type": "SomeNamedType"}.
		return p.parseName(typeName, namespace)
	}
}

func (p *schemaParser) parseRecord(obj map[string]interface{}, namespace string) (*Schema, error) {
	full, childNamespace, err := p.fullName(obj, namespace)
	if err != nil {
		return nil, err
	}

	schema := &Schema{Kind: Record, Name: full}
	if err := p.register(schema); err != nil {
		return nil, err
	}

	rawFields, ok := obj["fields"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("record %q missing \"fields\" list", full)
	}
	schema.Fields = make([]Field, 0, len(rawFields))
	for i, rawField := range rawFields {
		fieldObj, ok := rawField.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %q field %d is not an object", full, i)
		}
		fieldName, ok := fieldObj["name"].(string)
		if !ok {
			return nil, fmt.Errorf("record %q field %d missing name", full, i)
		}
		fieldType, ok := fieldObj["type"]
		if !ok {
			return nil, fmt.Errorf("record %q field %q missing type", full, fieldName)
		}
		child, err := p.parse(fieldType, childNamespace)
		if err != nil {
			return nil, fmt.Errorf("record %q field %q: %w", full, fieldName, err)
		}
		schema.Fields = append(schema.Fields, Field{Name: fieldName, Schema: child})
	}
	return schema, nil
}

func (p *schemaParser) parseEnum(obj map[string]interface{}, namespace string) (*Schema, error) {
	full, _, err := p.fullName(obj, namespace)
	if err != nil {
		return nil, err
	}
	rawSymbols, ok := obj["symbols"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("enum %q missing \"symbols\" list", full)
	}
	symbols := make([]string, 0, len(rawSymbols))
	for i, rawSymbol := range rawSymbols {
		symbol, ok := rawSymbol.(string)
		if !ok {
			return nil, fmt.Errorf("enum %q symbol %d is not a string", full, i)
		}
		symbols = append(symbols, symbol)
	}
	schema := &Schema{Kind: Enum, Name: full, Symbols: symbols}
	if err := p.register(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (p *schemaParser) parseFixed(obj map[string]interface{}, namespace string) (*Schema, error) {
	full, _, err := p.fullName(obj, namespace)
	if err != nil {
		return nil, err
	}
	size, ok := obj["size"].(float64)
	if !ok || size < 0 || size != float64(int(size)) {
		return nil, fmt.Errorf("fixed %q has invalid size", full)
	}
	schema := &Schema{Kind: Fixed, Name: full, Size: int(size)}
	if err := p.register(schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// fullName extracts the namespace-qualified name of a named type and the
// namespace its children inherit.
func (p *schemaParser) fullName(obj map[string]interface{}, namespace string) (full, childNamespace string, err error) {
	name, ok := obj["name"].(string)
	if !ok || name == "" {
		return "", "", fmt.Errorf("named type missing \"name\"")
	}
	if ns, ok := obj["namespace"].(string); ok && ns != "" {
		namespace = ns
	}
	full = qualify(name, namespace)
	if idx := strings.LastIndex(full, "."); idx >= 0 {
		childNamespace = full[:idx]
	}
	return full, childNamespace, nil
}

func (p *schemaParser) register(schema *Schema) error {
	if _, exists := p.named[schema.Name]; exists {
		return fmt.Errorf("duplicate definition of named type %q", schema.Name)
	}
	p.named[schema.Name] = schema
	return nil
}

func qualify(name, namespace string) string {
	if strings.Contains(name, ".") || namespace == "" {
		return name
	}
	return namespace + "." + name
}
