package savestate

import "fmt"

//go:generate savestategen github.com/jhump/savestate/examples/widget

// SaveState marks a struct field whose value must survive the destruction of
// its owner. It is written as an annotation in the field's doc comment:
//
//	type Widget struct {
//	    // @savestate.SaveState
//	    Count int
//
//	    // @savestate.SaveState{DefaultValue: "none", MinSdk: savestate.Honeycomb}
//	    Label string
//	}
//
// Running savestategen on the package containing Widget produces a
// WidgetStoreAdapter type that writes every annotated field into a Bundle and
// reads it back again. The adapter registers itself, so callers can also use
// SaveInstanceState and RestoreInstanceState without naming it.
//
// Only fields of top-level, named struct types can be annotated. Blank fields,
// package-level variables and constants, fields of interfaces, and fields of
// types declared inside function bodies are rejected by the processor.
type SaveState struct {
	// DefaultValue is assigned when a restore finds no entry for the field.
	// It is parsed according to the field's type: a Go integer or float
	// literal for numeric fields, "true" or "false" for booleans, the text
	// itself for strings, and a constant name for enumerated types. When
	// empty, a missing entry leaves the field untouched.
	DefaultValue string

	// MinSdk is the lowest platform level on which the field is saved and
	// restored. On older platforms the field is silently skipped. It may
	// not be lower than MinSdkFloor. When omitted it is MinSdkFloor.
	MinSdk SdkVersion
}

// SdkVersion is a platform level. A Bundle reports the level of the runtime
// it belongs to through its SdkAtLeast method.
type SdkVersion int

// Platform levels, in release order.
const (
	Base SdkVersion = iota + 1
	Base11
	Cupcake
	Donut
	Eclair
	Eclair01
	EclairMR1
	Froyo
	Gingerbread
	GingerbreadMR1
	Honeycomb
	HoneycombMR1
	HoneycombMR2
	IceCreamSandwich
	IceCreamSandwichMR1
	JellyBean
	JellyBeanMR1
	JellyBeanMR2
	KitKat
	KitKatWatch
	Lollipop
	LollipopMR1
	M
	N
	NMR1
	O
	OMR1
	P
	Q
	R
	S
	SV2
	Tiramisu
	UpsideDownCake
)

// MinSdkFloor is the lowest level a SaveState annotation may declare.
const MinSdkFloor = Froyo

var sdkNames = []string{
	"BASE", "BASE_1_1", "CUPCAKE", "DONUT", "ECLAIR", "ECLAIR_0_1", "ECLAIR_MR1",
	"FROYO", "GINGERBREAD", "GINGERBREAD_MR1", "HONEYCOMB", "HONEYCOMB_MR1",
	"HONEYCOMB_MR2", "ICE_CREAM_SANDWICH", "ICE_CREAM_SANDWICH_MR1", "JELLY_BEAN",
	"JELLY_BEAN_MR1", "JELLY_BEAN_MR2", "KITKAT", "KITKAT_WATCH", "LOLLIPOP",
	"LOLLIPOP_MR1", "M", "N", "N_MR1", "O", "O_MR1", "P", "Q", "R", "S", "S_V2",
	"TIRAMISU", "UPSIDE_DOWN_CAKE",
}

var sdkIdents = []string{
	"Base", "Base11", "Cupcake", "Donut", "Eclair", "Eclair01", "EclairMR1",
	"Froyo", "Gingerbread", "GingerbreadMR1", "Honeycomb", "HoneycombMR1",
	"HoneycombMR2", "IceCreamSandwich", "IceCreamSandwichMR1", "JellyBean",
	"JellyBeanMR1", "JellyBeanMR2", "KitKat", "KitKatWatch", "Lollipop",
	"LollipopMR1", "M", "N", "NMR1", "O", "OMR1", "P", "Q", "R", "S", "SV2",
	"Tiramisu", "UpsideDownCake",
}

// String renders the level as its release name followed by its number, for
// example "FROYO(8)". Levels without a name render as "SDK(n)".
func (v SdkVersion) String() string {
	if v >= Base && int(v) <= len(sdkNames) {
		return fmt.Sprintf("%s(%d)", sdkNames[v-1], int(v))
	}
	return fmt.Sprintf("SDK(%d)", int(v))
}

// Ident returns the name of the exported constant for this level, or false if
// the level has none.
func (v SdkVersion) Ident() (string, bool) {
	if v >= Base && int(v) <= len(sdkIdents) {
		return sdkIdents[v-1], true
	}
	return "", false
}

// SdkVersionByName looks up a level by the name of its exported constant.
func SdkVersionByName(name string) (SdkVersion, bool) {
	for i, n := range sdkIdents {
		if n == name {
			return SdkVersion(i + 1), true
		}
	}
	return 0, false
}
