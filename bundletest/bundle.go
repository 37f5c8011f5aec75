// Package bundletest provides an in-memory savestate.Bundle for tests. It
// simulates a platform level so that version-gated fields can be exercised.
package bundletest

import (
	"encoding"
	"fmt"
	"sort"

	"github.com/jhump/savestate"
)

// Bundle is an in-memory savestate.Bundle. Getters return the default when
// the key is absent or holds a value of a different type.
type Bundle struct {
	sdk     savestate.SdkVersion
	entries map[string]any
}

var _ savestate.Bundle = (*Bundle)(nil)

// New returns an empty bundle that reports the given platform level.
func New(sdk savestate.SdkVersion) *Bundle {
	return &Bundle{sdk: sdk, entries: map[string]any{}}
}

// Sdk returns the simulated platform level.
func (b *Bundle) Sdk() savestate.SdkVersion {
	return b.sdk
}

// Keys returns the keys of all entries, sorted.
func (b *Bundle) Keys() []string {
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the raw entry for key. Parcelables are stored as their
// marshaled bytes.
func (b *Bundle) Get(key string) (any, bool) {
	v, ok := b.entries[key]
	return v, ok
}

// Remove deletes the entry for key.
func (b *Bundle) Remove(key string) {
	delete(b.entries, key)
}

func (b *Bundle) ContainsKey(key string) bool {
	_, ok := b.entries[key]
	return ok
}

func (b *Bundle) SdkAtLeast(v savestate.SdkVersion) bool {
	return b.sdk >= v
}

func get[T any](b *Bundle, key string, def T) T {
	if v, ok := b.entries[key].(T); ok {
		return v
	}
	return def
}

func (b *Bundle) PutBool(key string, v bool)                 { b.entries[key] = v }
func (b *Bundle) GetBool(key string, def bool) bool          { return get(b, key, def) }
func (b *Bundle) PutInt(key string, v int)                   { b.entries[key] = v }
func (b *Bundle) GetInt(key string, def int) int             { return get(b, key, def) }
func (b *Bundle) PutInt8(key string, v int8)                 { b.entries[key] = v }
func (b *Bundle) GetInt8(key string, def int8) int8          { return get(b, key, def) }
func (b *Bundle) PutInt16(key string, v int16)               { b.entries[key] = v }
func (b *Bundle) GetInt16(key string, def int16) int16       { return get(b, key, def) }
func (b *Bundle) PutInt32(key string, v int32)               { b.entries[key] = v }
func (b *Bundle) GetInt32(key string, def int32) int32       { return get(b, key, def) }
func (b *Bundle) PutInt64(key string, v int64)               { b.entries[key] = v }
func (b *Bundle) GetInt64(key string, def int64) int64       { return get(b, key, def) }
func (b *Bundle) PutUint(key string, v uint)                 { b.entries[key] = v }
func (b *Bundle) GetUint(key string, def uint) uint          { return get(b, key, def) }
func (b *Bundle) PutUint8(key string, v uint8)               { b.entries[key] = v }
func (b *Bundle) GetUint8(key string, def uint8) uint8       { return get(b, key, def) }
func (b *Bundle) PutUint16(key string, v uint16)             { b.entries[key] = v }
func (b *Bundle) GetUint16(key string, def uint16) uint16    { return get(b, key, def) }
func (b *Bundle) PutUint32(key string, v uint32)             { b.entries[key] = v }
func (b *Bundle) GetUint32(key string, def uint32) uint32    { return get(b, key, def) }
func (b *Bundle) PutUint64(key string, v uint64)             { b.entries[key] = v }
func (b *Bundle) GetUint64(key string, def uint64) uint64    { return get(b, key, def) }
func (b *Bundle) PutFloat32(key string, v float32)           { b.entries[key] = v }
func (b *Bundle) GetFloat32(key string, def float32) float32 { return get(b, key, def) }
func (b *Bundle) PutFloat64(key string, v float64)           { b.entries[key] = v }
func (b *Bundle) GetFloat64(key string, def float64) float64 { return get(b, key, def) }
func (b *Bundle) PutString(key string, v string)             { b.entries[key] = v }
func (b *Bundle) GetString(key string, def string) string    { return get(b, key, def) }

func (b *Bundle) NewBundle() savestate.Bundle {
	return New(b.sdk)
}

func (b *Bundle) PutBundle(key string, v savestate.Bundle) {
	b.entries[key] = v
}

func (b *Bundle) GetBundle(key string) savestate.Bundle {
	if v, ok := b.entries[key].(savestate.Bundle); ok && v != nil {
		return v
	}
	return nil
}

type parcel []byte

func (b *Bundle) PutParcelable(key string, v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return fmt.Errorf("bundletest: marshal %s: %w", key, err)
	}
	b.entries[key] = parcel(data)
	return nil
}

func (b *Bundle) GetParcelable(key string, v encoding.BinaryUnmarshaler) error {
	p, ok := b.entries[key].(parcel)
	if !ok {
		return fmt.Errorf("bundletest: no parcelable for key %s", key)
	}
	if err := v.UnmarshalBinary(p); err != nil {
		return fmt.Errorf("bundletest: unmarshal %s: %w", key, err)
	}
	return nil
}
