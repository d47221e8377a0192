package schema

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/eurostake/staking-sync-service/internal/types"
)

// SupportedSchemaVersion is the only schema version this codec speaks.
// A contract upgrade can change the encoding, so version is carried
// explicitly and matched exactly; anything else fails closed.
const SupportedSchemaVersion uint8 = 1

var schemaMagic = [4]byte{'C', 'S', 'C', 'M'}

// TypeKind is the wire tag of a schema type expression.
type TypeKind uint8

const (
	TypeUnit            TypeKind = 0
	TypeBool            TypeKind = 1
	TypeU8              TypeKind = 2
	TypeU64             TypeKind = 3
	TypeU128            TypeKind = 4
	TypeAccountAddress  TypeKind = 5
	TypeContractAddress TypeKind = 6
	TypeTimestamp       TypeKind = 7
	TypeString          TypeKind = 8
	TypeList            TypeKind = 9
	TypeStruct          TypeKind = 10
)

// Type is a recursive schema type expression.
type Type struct {
	Kind   TypeKind
	Elem   *Type   // List element type
	Fields []Field // Struct fields, ordered
}

// Field is one named field of a struct type.
type Field struct {
	Name string
	Type Type
}

// Entrypoint describes one callable contract function: its parameter
// type (nil means no parameter) and return type (nil means none).
type Entrypoint struct {
	Name   string
	Param  *Type
	Return *Type
}

// Schema is the parsed, versioned binary schema of one contract module.
// Immutable once cached.
type Schema struct {
	ModuleRef   types.ModuleReference
	Version     uint8
	Contract    string
	Entrypoints map[string]Entrypoint
	Raw         []byte
	FetchedAt   time.Time
}

// Entrypoint looks up an entrypoint by name.
func (s *Schema) Entrypoint(name string) (Entrypoint, bool) {
	ep, ok := s.Entrypoints[name]
	return ep, ok
}

type schemaReader struct {
	buf []byte
	pos int
}

func (r *schemaReader) remaining() int {
	return len(r.buf) - r.pos
}

func (r *schemaReader) readBytes(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("truncated schema: need %d bytes at offset %d, have %d", n, r.pos, r.remaining())
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *schemaReader) readU8() (uint8, error) {
	b, err := r.readBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *schemaReader) readName() (string, error) {
	n, err := r.readU8()
	if err != nil {
		return "", err
	}
	raw, err := r.readBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("schema name at offset %d is not valid utf8", r.pos-int(n))
	}
	return string(raw), nil
}

func (r *schemaReader) readType() (Type, error) {
	tag, err := r.readU8()
	if err != nil {
		return Type{}, err
	}
	kind := TypeKind(tag)
	switch kind {
	case TypeUnit, TypeBool, TypeU8, TypeU64, TypeU128,
		TypeAccountAddress, TypeContractAddress, TypeTimestamp, TypeString:
		return Type{Kind: kind}, nil
	case TypeList:
		elem, err := r.readType()
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: TypeList, Elem: &elem}, nil
	case TypeStruct:
		count, err := r.readU8()
		if err != nil {
			return Type{}, err
		}
		fields := make([]Field, 0, count)
		for i := 0; i < int(count); i++ {
			name, err := r.readName()
			if err != nil {
				return Type{}, err
			}
			ft, err := r.readType()
			if err != nil {
				return Type{}, err
			}
			fields = append(fields, Field{Name: name, Type: ft})
		}
		return Type{Kind: TypeStruct, Fields: fields}, nil
	default:
		return Type{}, fmt.Errorf("unknown schema type tag %d at offset %d", tag, r.pos-1)
	}
}

// Parse parses raw embedded schema bytes fetched for the given module.
// Rejects any schema whose version differs from SupportedSchemaVersion.
func Parse(moduleRef types.ModuleReference, raw []byte) (*Schema, error) {
	r := &schemaReader{buf: raw}

	magic, err := r.readBytes(len(schemaMagic))
	if err != nil {
		return nil, err
	}
	if [4]byte(magic) != schemaMagic {
		return nil, fmt.Errorf("bad schema magic %q", magic)
	}

	version, err := r.readU8()
	if err != nil {
		return nil, err
	}
	if version != SupportedSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d, supported %d", version, SupportedSchemaVersion)
	}

	contract, err := r.readName()
	if err != nil {
		return nil, err
	}

	count, err := r.readU8()
	if err != nil {
		return nil, err
	}
	entrypoints := make(map[string]Entrypoint, count)
	for i := 0; i < int(count); i++ {
		name, err := r.readName()
		if err != nil {
			return nil, err
		}
		ep := Entrypoint{Name: name}
		hasParam, err := r.readU8()
		if err != nil {
			return nil, err
		}
		if hasParam != 0 {
			t, err := r.readType()
			if err != nil {
				return nil, err
			}
			ep.Param = &t
		}
		hasReturn, err := r.readU8()
		if err != nil {
			return nil, err
		}
		if hasReturn != 0 {
			t, err := r.readType()
			if err != nil {
				return nil, err
			}
			ep.Return = &t
		}
		if _, dup := entrypoints[name]; dup {
			return nil, fmt.Errorf("duplicate entrypoint %q in schema", name)
		}
		entrypoints[name] = ep
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after schema body", r.remaining())
	}

	return &Schema{
		ModuleRef:   moduleRef,
		Version:     version,
		Contract:    contract,
		Entrypoints: entrypoints,
		Raw:         raw,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// appendName serializes a length-prefixed name. Used by test fixtures
// and schema builders.
func appendName(buf []byte, name string) []byte {
	buf = append(buf, uint8(len(name)))
	return append(buf, name...)
}

// appendType serializes a type expression.
func appendType(buf []byte, t Type) []byte {
	buf = append(buf, uint8(t.Kind))
	switch t.Kind {
	case TypeList:
		buf = appendType(buf, *t.Elem)
	case TypeStruct:
		buf = append(buf, uint8(len(t.Fields)))
		for _, f := range t.Fields {
			buf = appendName(buf, f.Name)
			buf = appendType(buf, f.Type)
		}
	}
	return buf
}

// Serialize renders a schema back to its wire form. The ledger node
// embeds schemas in this format; local serialization exists so tests
// and tooling can build fixture modules.
func Serialize(contract string, version uint8, entrypoints []Entrypoint) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, schemaMagic[:]...)
	buf = append(buf, version)
	buf = appendName(buf, contract)
	buf = append(buf, uint8(len(entrypoints)))
	for _, ep := range entrypoints {
		buf = appendName(buf, ep.Name)
		if ep.Param != nil {
			buf = append(buf, 1)
			buf = appendType(buf, *ep.Param)
		} else {
			buf = append(buf, 0)
		}
		if ep.Return != nil {
			buf = append(buf, 1)
			buf = appendType(buf, *ep.Return)
		} else {
			buf = append(buf, 0)
		}
	}
	return buf
}
