package schema

import (
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/eurostake/staking-sync-service/internal/observability/metrics"
	"github.com/eurostake/staking-sync-service/internal/types"
)

// NodeSchemaSource fetches the schema bytes embedded in a deployed
// module. Implemented by the ledger node client.
type NodeSchemaSource interface {
	GetEmbeddedSchema(ctx context.Context, moduleRef types.ModuleReference) ([]byte, *types.Error)
}

// Codec fetches, caches and applies versioned binary schemas. The cache
// is owned exclusively by the codec; entries are immutable once stored.
type Codec struct {
	source NodeSchemaSource

	mu    sync.RWMutex
	cache map[types.ModuleReference]*Schema
}

func NewCodec(source NodeSchemaSource) *Codec {
	return &Codec{
		source: source,
		cache:  make(map[types.ModuleReference]*Schema),
	}
}

// FetchSchema returns the parsed schema for the module, fetching from
// the node on first use and serving from cache afterwards.
func (c *Codec) FetchSchema(ctx context.Context, moduleRef types.ModuleReference) (*Schema, *types.Error) {
	c.mu.RLock()
	cached, ok := c.cache[moduleRef]
	c.mu.RUnlock()
	if ok {
		metrics.RecordSchemaCacheOutcome(true)
		return cached, nil
	}
	metrics.RecordSchemaCacheOutcome(false)

	raw, err := c.source.GetEmbeddedSchema(ctx, moduleRef)
	if err != nil {
		return nil, err
	}

	parsed, parseErr := Parse(moduleRef, raw)
	if parseErr != nil {
		log.Ctx(ctx).Error().Err(parseErr).
			Str("moduleRef", moduleRef.Hex()).
			Msg("failed to parse embedded schema")
		return nil, types.NewError(http.StatusUnprocessableEntity, types.SchemaMismatch, parseErr)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A concurrent fetch may have won; keep the first stored entry so
	// cached schemas stay immutable.
	if existing, ok := c.cache[moduleRef]; ok {
		return existing, nil
	}
	c.cache[moduleRef] = parsed
	return parsed, nil
}

// Invalidate drops the cached schema for a module. Needed after a
// contract upgrade changes the module reference's meaning for callers
// holding stale decode errors.
func (c *Codec) Invalidate(moduleRef types.ModuleReference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, moduleRef)
}

// EncodeParameter serializes a parameter value for the entrypoint.
// Fails with SCHEMA_MISMATCH if the entrypoint is absent, takes no
// parameter, or the value's shape does not match the schema.
func (c *Codec) EncodeParameter(s *Schema, contract, entrypoint string, value Value) ([]byte, *types.Error) {
	if s.Contract != contract {
		return nil, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.SchemaMismatch,
			fmt.Sprintf("schema describes contract %q, not %q", s.Contract, contract),
		)
	}
	ep, ok := s.Entrypoint(entrypoint)
	if !ok {
		return nil, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.SchemaMismatch,
			fmt.Sprintf("entrypoint %q absent from schema of %q", entrypoint, contract),
		)
	}
	if ep.Param == nil {
		if value.Kind == KindUnit {
			return []byte{}, nil
		}
		return nil, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.SchemaMismatch,
			fmt.Sprintf("entrypoint %q takes no parameter, got %s", entrypoint, value.Kind),
		)
	}
	buf, err := encodeValue(nil, *ep.Param, value)
	if err != nil {
		return nil, types.NewError(http.StatusUnprocessableEntity, types.SchemaMismatch, err)
	}
	return buf, nil
}

// DecodeReturnValue deserializes a return value of the entrypoint.
// Fails with DECODE_ERROR on malformed bytes, trailing bytes, or a
// schema version mismatch; never attempts a best-effort parse.
func (c *Codec) DecodeReturnValue(s *Schema, contract, entrypoint string, raw []byte) (*Value, *types.Error) {
	if s.Version != SupportedSchemaVersion {
		return nil, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.DecodeError,
			fmt.Sprintf("schema version %d does not match supported version %d", s.Version, SupportedSchemaVersion),
		)
	}
	if s.Contract != contract {
		return nil, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.DecodeError,
			fmt.Sprintf("schema describes contract %q, not %q", s.Contract, contract),
		)
	}
	ep, ok := s.Entrypoint(entrypoint)
	if !ok {
		return nil, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.DecodeError,
			fmt.Sprintf("entrypoint %q absent from schema of %q", entrypoint, contract),
		)
	}
	if ep.Return == nil {
		if len(raw) != 0 {
			return nil, types.NewErrorWithMsg(
				http.StatusUnprocessableEntity, types.DecodeError,
				fmt.Sprintf("entrypoint %q returns nothing, got %d bytes", entrypoint, len(raw)),
			)
		}
		v := UnitValue()
		return &v, nil
	}
	value, rest, err := decodeValue(*ep.Return, raw)
	if err != nil {
		return nil, types.NewError(http.StatusUnprocessableEntity, types.DecodeError, err)
	}
	if len(rest) != 0 {
		return nil, types.NewErrorWithMsg(
			http.StatusUnprocessableEntity, types.DecodeError,
			fmt.Sprintf("%d trailing bytes after %q return value", len(rest), entrypoint),
		)
	}
	return &value, nil
}

// EncodeValue serializes a value against a bare type expression. Like
// Serialize, it exists so tests and tooling can build fixture payloads.
func EncodeValue(t Type, v Value) ([]byte, error) {
	return encodeValue(nil, t, v)
}

func kindForType(t TypeKind) ValueKind {
	switch t {
	case TypeUnit:
		return KindUnit
	case TypeBool:
		return KindBool
	case TypeU8:
		return KindU8
	case TypeU64:
		return KindU64
	case TypeU128:
		return KindU128
	case TypeAccountAddress:
		return KindAccountAddress
	case TypeContractAddress:
		return KindContractAddress
	case TypeTimestamp:
		return KindTimestamp
	case TypeString:
		return KindString
	case TypeList:
		return KindList
	default:
		return KindStruct
	}
}

func encodeValue(buf []byte, t Type, v Value) ([]byte, error) {
	if want := kindForType(t.Kind); v.Kind != want {
		return nil, fmt.Errorf("value kind %s does not match schema type %s", v.Kind, want)
	}
	switch t.Kind {
	case TypeUnit:
		return buf, nil
	case TypeBool:
		if v.Bool {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case TypeU8:
		if v.Uint > 0xff {
			return nil, fmt.Errorf("u8 value %d out of range", v.Uint)
		}
		return append(buf, uint8(v.Uint)), nil
	case TypeU64:
		return binary.LittleEndian.AppendUint64(buf, v.Uint), nil
	case TypeU128:
		buf = binary.LittleEndian.AppendUint64(buf, v.Lo)
		return binary.LittleEndian.AppendUint64(buf, v.Hi), nil
	case TypeAccountAddress:
		return append(buf, v.Account[:]...), nil
	case TypeContractAddress:
		buf = binary.LittleEndian.AppendUint64(buf, v.Contract.Index)
		return binary.LittleEndian.AppendUint64(buf, v.Contract.Subindex), nil
	case TypeTimestamp:
		return binary.LittleEndian.AppendUint64(buf, v.Uint), nil
	case TypeString:
		if len(v.Str) > 0xffff {
			return nil, fmt.Errorf("string of %d bytes exceeds wire limit", len(v.Str))
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(v.Str)))
		return append(buf, v.Str...), nil
	case TypeList:
		if len(v.List) > 0xffff {
			return nil, fmt.Errorf("list of %d elements exceeds wire limit", len(v.List))
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(v.List)))
		var err error
		for i, elem := range v.List {
			buf, err = encodeValue(buf, *t.Elem, elem)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
		}
		return buf, nil
	case TypeStruct:
		if len(v.Fields) != len(t.Fields) {
			return nil, fmt.Errorf("struct has %d fields, schema expects %d", len(v.Fields), len(t.Fields))
		}
		var err error
		for i, f := range t.Fields {
			if v.Fields[i].Name != f.Name {
				return nil, fmt.Errorf("struct field %d is %q, schema expects %q", i, v.Fields[i].Name, f.Name)
			}
			buf, err = encodeValue(buf, f.Type, v.Fields[i].Value)
			if err != nil {
				return nil, fmt.Errorf("struct field %q: %w", f.Name, err)
			}
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("unsupported schema type tag %d", t.Kind)
	}
}

func decodeValue(t Type, raw []byte) (Value, []byte, error) {
	take := func(n int) ([]byte, error) {
		if len(raw) < n {
			return nil, fmt.Errorf("truncated value: need %d bytes, have %d", n, len(raw))
		}
		out := raw[:n]
		raw = raw[n:]
		return out, nil
	}

	switch t.Kind {
	case TypeUnit:
		return UnitValue(), raw, nil
	case TypeBool:
		b, err := take(1)
		if err != nil {
			return Value{}, nil, err
		}
		switch b[0] {
		case 0:
			return BoolValue(false), raw, nil
		case 1:
			return BoolValue(true), raw, nil
		default:
			return Value{}, nil, fmt.Errorf("invalid bool byte %d", b[0])
		}
	case TypeU8:
		b, err := take(1)
		if err != nil {
			return Value{}, nil, err
		}
		return U8Value(b[0]), raw, nil
	case TypeU64:
		b, err := take(8)
		if err != nil {
			return Value{}, nil, err
		}
		return U64Value(binary.LittleEndian.Uint64(b)), raw, nil
	case TypeU128:
		b, err := take(16)
		if err != nil {
			return Value{}, nil, err
		}
		lo := binary.LittleEndian.Uint64(b[:8])
		hi := binary.LittleEndian.Uint64(b[8:])
		return U128Value(hi, lo), raw, nil
	case TypeAccountAddress:
		b, err := take(types.AccountAddressLength)
		if err != nil {
			return Value{}, nil, err
		}
		var addr types.AccountAddress
		copy(addr[:], b)
		return AccountValue(addr), raw, nil
	case TypeContractAddress:
		b, err := take(16)
		if err != nil {
			return Value{}, nil, err
		}
		return ContractValue(types.ContractAddress{
			Index:    binary.LittleEndian.Uint64(b[:8]),
			Subindex: binary.LittleEndian.Uint64(b[8:]),
		}), raw, nil
	case TypeTimestamp:
		b, err := take(8)
		if err != nil {
			return Value{}, nil, err
		}
		return TimestampValue(binary.LittleEndian.Uint64(b)), raw, nil
	case TypeString:
		lenBytes, err := take(2)
		if err != nil {
			return Value{}, nil, err
		}
		n := int(binary.LittleEndian.Uint16(lenBytes))
		b, err := take(n)
		if err != nil {
			return Value{}, nil, err
		}
		if !utf8.Valid(b) {
			return Value{}, nil, fmt.Errorf("string value is not valid utf8")
		}
		return StringValue(string(b)), raw, nil
	case TypeList:
		lenBytes, err := take(2)
		if err != nil {
			return Value{}, nil, err
		}
		n := int(binary.LittleEndian.Uint16(lenBytes))
		elems := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			elem, rest, err := decodeValue(*t.Elem, raw)
			if err != nil {
				return Value{}, nil, fmt.Errorf("list element %d: %w", i, err)
			}
			raw = rest
			elems = append(elems, elem)
		}
		return Value{Kind: KindList, List: elems}, raw, nil
	case TypeStruct:
		fields := make([]NamedValue, 0, len(t.Fields))
		for _, f := range t.Fields {
			fv, rest, err := decodeValue(f.Type, raw)
			if err != nil {
				return Value{}, nil, fmt.Errorf("struct field %q: %w", f.Name, err)
			}
			raw = rest
			fields = append(fields, NamedValue{Name: f.Name, Value: fv})
		}
		return Value{Kind: KindStruct, Fields: fields}, raw, nil
	default:
		return Value{}, nil, fmt.Errorf("unsupported schema type tag %d", t.Kind)
	}
}
