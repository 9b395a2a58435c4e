/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type partitionKeyKind uint8

const (
	partitionKeyNone partitionKeyKind = iota
	partitionKeyNull
	partitionKeyString
	partitionKeyNumber
	partitionKeyBool
)

// PartitionKey is the value that decides which partition a document lives in.
// It is passed through to the store unchanged. The zero value means "no
// partition key", which is only meaningful for queries (cross-partition).
type PartitionKey struct {
	kind partitionKeyKind
	s    string
	n    float64
	b    bool
}

// NullPartitionKey addresses documents whose partition key property is JSON null.
var NullPartitionKey = PartitionKey{kind: partitionKeyNull}

// NewPartitionKeyString creates a string partition key.
func NewPartitionKeyString(value string) PartitionKey {
	return PartitionKey{kind: partitionKeyString, s: value}
}

// NewPartitionKeyNumber creates a numeric partition key.
func NewPartitionKeyNumber(value float64) PartitionKey {
	return PartitionKey{kind: partitionKeyNumber, n: value}
}

// NewPartitionKeyBool creates a boolean partition key.
func NewPartitionKeyBool(value bool) PartitionKey {
	return PartitionKey{kind: partitionKeyBool, b: value}
}

// IsNone reports whether the key is the zero value.
func (pk PartitionKey) IsNone() bool {
	return pk.kind == partitionKeyNone
}

// IsNull reports whether the key addresses the null partition.
func (pk PartitionKey) IsNull() bool {
	return pk.kind == partitionKeyNull
}

// Value returns the key as a plain Go value: string, float64, bool or nil.
func (pk PartitionKey) Value() any {
	switch pk.kind {
	case partitionKeyString:
		return pk.s
	case partitionKeyNumber:
		return pk.n
	case partitionKeyBool:
		return pk.b
	default:
		return nil
	}
}

// String renders the key the way it appears in a JSON document. Two keys
// with the same String are the same key.
func (pk PartitionKey) String() string {
	switch pk.kind {
	case partitionKeyNone:
		return ""
	case partitionKeyNull:
		return "null"
	case partitionKeyString:
		return strconv.Quote(pk.s)
	case partitionKeyNumber:
		return strconv.FormatFloat(pk.n, 'g', -1, 64)
	case partitionKeyBool:
		return strconv.FormatBool(pk.b)
	}
	return ""
}

// MarshalJSON encodes the key as its JSON value; the zero key encodes as null.
func (pk PartitionKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(pk.Value())
}

// ParsePartitionKey reads a key from its String form. Unquoted text that is
// not a number, bool or null is taken as a bare string, so "tenant-a" and
// `"tenant-a"` are the same key.
func ParsePartitionKey(s string) (PartitionKey, error) {
	switch s {
	case "":
		return PartitionKey{}, nil
	case "null":
		return NullPartitionKey, nil
	case "true", "false":
		return NewPartitionKeyBool(s == "true"), nil
	}
	if s[0] == '"' {
		v, err := strconv.Unquote(s)
		if err != nil {
			return PartitionKey{}, fmt.Errorf("invalid partition key %s: %w", s, err)
		}
		return NewPartitionKeyString(v), nil
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return NewPartitionKeyNumber(n), nil
	}
	return NewPartitionKeyString(s), nil
}
