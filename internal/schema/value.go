package schema

import (
	"fmt"

	"github.com/eurostake/staking-sync-service/internal/types"
)

// ValueKind tags a Value. Kinds correspond one-to-one with schema type
// tags; a value only encodes against a type of the same kind.
type ValueKind uint8

const (
	KindUnit ValueKind = iota
	KindBool
	KindU8
	KindU64
	KindU128
	KindAccountAddress
	KindContractAddress
	KindTimestamp
	KindString
	KindList
	KindStruct
)

func (k ValueKind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindBool:
		return "bool"
	case KindU8:
		return "u8"
	case KindU64:
		return "u64"
	case KindU128:
		return "u128"
	case KindAccountAddress:
		return "account_address"
	case KindContractAddress:
		return "contract_address"
	case KindTimestamp:
		return "timestamp"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindStruct:
		return "struct"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged variant holding one schema-typed contract value.
// Exactly the payload field matching Kind is meaningful; the shape is
// validated against the schema at encode and decode time rather than
// trusted implicitly.
type Value struct {
	Kind     ValueKind
	Bool     bool
	Uint     uint64 // U8, U64, Timestamp (unix millis)
	Hi, Lo   uint64 // U128
	Str      string
	Account  types.AccountAddress
	Contract types.ContractAddress
	List     []Value
	Fields   []NamedValue // Struct, in schema field order
}

// NamedValue is one field of a struct value.
type NamedValue struct {
	Name  string
	Value Value
}

func UnitValue() Value                 { return Value{Kind: KindUnit} }
func BoolValue(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func U8Value(v uint8) Value            { return Value{Kind: KindU8, Uint: uint64(v)} }
func U64Value(v uint64) Value          { return Value{Kind: KindU64, Uint: v} }
func U128Value(hi, lo uint64) Value    { return Value{Kind: KindU128, Hi: hi, Lo: lo} }
func TimestampValue(millis uint64) Value { return Value{Kind: KindTimestamp, Uint: millis} }
func StringValue(s string) Value       { return Value{Kind: KindString, Str: s} }

func AccountValue(a types.AccountAddress) Value {
	return Value{Kind: KindAccountAddress, Account: a}
}

func ContractValue(c types.ContractAddress) Value {
	return Value{Kind: KindContractAddress, Contract: c}
}

func ListValue(elems ...Value) Value {
	return Value{Kind: KindList, List: elems}
}

func StructValue(fields ...NamedValue) Value {
	return Value{Kind: KindStruct, Fields: fields}
}

// Field returns the named struct field, or false if the value is not a
// struct or has no such field.
func (v Value) Field(name string) (Value, bool) {
	if v.Kind != KindStruct {
		return Value{}, false
	}
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// AsU64 returns the numeric payload of a U8, U64 or Timestamp value.
func (v Value) AsU64() (uint64, bool) {
	switch v.Kind {
	case KindU8, KindU64, KindTimestamp:
		return v.Uint, true
	default:
		return 0, false
	}
}

// AsBool returns the boolean payload of a Bool value.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}
