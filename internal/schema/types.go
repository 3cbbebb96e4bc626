// Package schema provides record type definitions and static validation
// for lifecycle-managed types. Schemas describe the fields and relations
// a record carries so that hook declarations can be checked against them.
package schema

import "fmt"

// PrimitiveType represents the built-in field types
type PrimitiveType int

const (
	TypeString PrimitiveType = iota
	TypeText
	TypeInt
	TypeBigInt
	TypeFloat
	TypeBool
	TypeTimestamp
	TypeUUID
	TypeJSON
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeUUID:
		return "uuid"
	case TypeJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch s {
	case "string":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float":
		return TypeFloat, nil
	case "bool":
		return TypeBool, nil
	case "timestamp":
		return TypeTimestamp, nil
	case "uuid":
		return TypeUUID, nil
	case "json":
		return TypeJSON, nil
	default:
		return 0, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// Field represents a field in a resource schema
type Field struct {
	Name       string
	Type       PrimitiveType
	Nullable   bool
	PrimaryKey bool
}

// RelationType represents the type of relationship
type RelationType int

const (
	RelationshipBelongsTo RelationType = iota
	RelationshipHasOne
	RelationshipHasMany
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasOne:
		return "has_one"
	case RelationshipHasMany:
		return "has_many"
	default:
		return "unknown"
	}
}

// Relationship represents a relationship to another resource. Watched
// field paths may traverse a relationship by dot notation.
type Relationship struct {
	FieldName      string
	TargetResource string
	Type           RelationType
	ForeignKey     string
}

// ResourceSchema represents the complete schema for a resource
type ResourceSchema struct {
	Name          string
	TableName     string
	Fields        map[string]*Field
	Relationships map[string]*Relationship
}

// NewResourceSchema creates a new ResourceSchema
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:          name,
		TableName:     toSnakeCase(name),
		Fields:        make(map[string]*Field),
		Relationships: make(map[string]*Relationship),
	}
}

// AddField adds a field to the schema and returns the schema for chaining
func (r *ResourceSchema) AddField(f *Field) *ResourceSchema {
	r.Fields[f.Name] = f
	return r
}

// AddRelationship adds a relationship to the schema and returns the
// schema for chaining
func (r *ResourceSchema) AddRelationship(rel *Relationship) *ResourceSchema {
	r.Relationships[rel.FieldName] = rel
	return r
}

// HasField returns true if the resource has a field with the given name
func (r *ResourceSchema) HasField(name string) bool {
	_, exists := r.Fields[name]
	return exists
}

// HasRelationship returns true if the resource has a relationship with
// the given name
func (r *ResourceSchema) HasRelationship(name string) bool {
	_, exists := r.Relationships[name]
	return exists
}

// GetPrimaryKey returns the primary key field
func (r *ResourceSchema) GetPrimaryKey() (*Field, error) {
	for _, field := range r.Fields {
		if field.PrimaryKey {
			return field, nil
		}
	}
	return nil, fmt.Errorf("resource %s has no primary key", r.Name)
}

// toSnakeCase converts a string to snake_case
func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				result = append(result, '_')
			}
			result = append(result, r+('a'-'A'))
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
