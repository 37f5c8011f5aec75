package savestate

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

const (
	// StoreAdapterSuffix is appended to an owner's flattened name to name
	// its generated adapter.
	StoreAdapterSuffix = "StoreAdapter"
	// NestedSeparator replaces the dots of a nested owner name.
	NestedSeparator = "_"
)

// PlatformPrefixes are qualified-name prefixes of types that belong to the
// platform. Owners under them cannot receive generated adapters.
var PlatformPrefixes = []string{
	"golang.org/x/",
	"github.com/jhump/savestate.",
}

// ErrNoAdapter is returned by SaveInstanceState and RestoreInstanceState when
// no adapter was registered for the target's type.
var ErrNoAdapter = errors.New("savestate: no store adapter registered")

// StoreAdapter saves and restores the annotated fields of a T. Generated
// adapters implement it for their owner type.
type StoreAdapter[T any] interface {
	Save(source *T, b Bundle) error
	Restore(b Bundle, target *T) error
}

type erasedAdapter struct {
	save    func(target any, b Bundle) error
	restore func(b Bundle, target any) error
}

var (
	registryLock sync.RWMutex
	registry     = map[reflect.Type]erasedAdapter{}
)

// Register makes adapter available to SaveInstanceState and
// RestoreInstanceState for values of type *T. Generated adapters call it from
// an init function. Registering a second adapter for the same type replaces
// the first.
func Register[T any](adapter StoreAdapter[T]) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	registryLock.Lock()
	defer registryLock.Unlock()
	registry[t] = erasedAdapter{
		save: func(target any, b Bundle) error {
			return adapter.Save(target.(*T), b)
		},
		restore: func(b Bundle, target any) error {
			return adapter.Restore(b, target.(*T))
		},
	}
}

func lookup(target any) (erasedAdapter, error) {
	t := reflect.TypeOf(target)
	if t == nil || t.Kind() != reflect.Ptr || reflect.ValueOf(target).IsNil() {
		return erasedAdapter{}, fmt.Errorf("savestate: target must be a non-nil pointer, got %T", target)
	}
	registryLock.RLock()
	a, ok := registry[t.Elem()]
	registryLock.RUnlock()
	if !ok {
		return erasedAdapter{}, fmt.Errorf("%w for %v", ErrNoAdapter, t.Elem())
	}
	return a, nil
}

// SaveInstanceState writes the annotated fields of target, which must be a
// pointer to a type with a registered adapter, into b.
func SaveInstanceState(target any, b Bundle) error {
	a, err := lookup(target)
	if err != nil {
		return err
	}
	return a.save(target, b)
}

// RestoreInstanceState reads the annotated fields of target, which must be a
// pointer to a type with a registered adapter, from b.
func RestoreInstanceState(b Bundle, target any) error {
	a, err := lookup(target)
	if err != nil {
		return err
	}
	return a.restore(b, target)
}
