package savestate

import "encoding"

// Bundle is the typed key-value container that generated adapters write to
// and read from. The host platform supplies the implementation; this package
// only defines the contract.
//
// Every Get method returns def when the key is absent. Generated code guards
// reads with ContainsKey wherever absence must leave a field untouched.
type Bundle interface {
	// ContainsKey reports whether an entry for key exists.
	ContainsKey(key string) bool
	// SdkAtLeast reports whether the running platform is at least the given
	// level.
	SdkAtLeast(v SdkVersion) bool

	PutBool(key string, v bool)
	GetBool(key string, def bool) bool
	PutInt(key string, v int)
	GetInt(key string, def int) int
	PutInt8(key string, v int8)
	GetInt8(key string, def int8) int8
	PutInt16(key string, v int16)
	GetInt16(key string, def int16) int16
	PutInt32(key string, v int32)
	GetInt32(key string, def int32) int32
	PutInt64(key string, v int64)
	GetInt64(key string, def int64) int64
	PutUint(key string, v uint)
	GetUint(key string, def uint) uint
	PutUint8(key string, v uint8)
	GetUint8(key string, def uint8) uint8
	PutUint16(key string, v uint16)
	GetUint16(key string, def uint16) uint16
	PutUint32(key string, v uint32)
	GetUint32(key string, def uint32) uint32
	PutUint64(key string, v uint64)
	GetUint64(key string, def uint64) uint64
	PutFloat32(key string, v float32)
	GetFloat32(key string, def float32) float32
	PutFloat64(key string, v float64)
	GetFloat64(key string, def float64) float64
	PutString(key string, v string)
	GetString(key string, def string) string

	// NewBundle returns an empty container of the same kind, for nesting.
	NewBundle() Bundle
	PutBundle(key string, v Bundle)
	// GetBundle returns nil when the key is absent.
	GetBundle(key string) Bundle

	// PutParcelable stores the marshaled form of v.
	PutParcelable(key string, v encoding.BinaryMarshaler) error
	// GetParcelable unmarshals the entry for key into v. It is an error to
	// call it for an absent key.
	GetParcelable(key string, v encoding.BinaryUnmarshaler) error
}
