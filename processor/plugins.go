package processor

import (
	"fmt"
	"sync"
)

type registeredProcessor struct {
	name string
	proc Processor
}

var (
	registryLock      sync.Mutex
	registeredPlugins []registeredProcessor
)

// RegisterProcessor registers the given annotation processor under a name.
// Registered processors run in registration order. It panics if the name is
// already taken.
func RegisterProcessor(name string, p Processor) {
	registryLock.Lock()
	defer registryLock.Unlock()
	for _, rp := range registeredPlugins {
		if rp.name == name {
			panic(fmt.Sprintf("processor %q already registered", name))
		}
	}
	registeredPlugins = append(registeredPlugins, registeredProcessor{name: name, proc: p})
}

// AllRegisteredProcessors returns the list of all registered processors.
func AllRegisteredProcessors() []Processor {
	registryLock.Lock()
	defer registryLock.Unlock()
	procs := make([]Processor, len(registeredPlugins))
	for i, rp := range registeredPlugins {
		procs[i] = rp.proc
	}
	return procs
}

// RegisteredProcessorNames returns the names of all registered processors,
// in registration order.
func RegisteredProcessorNames() []string {
	registryLock.Lock()
	defer registryLock.Unlock()
	names := make([]string, len(registeredPlugins))
	for i, rp := range registeredPlugins {
		names[i] = rp.name
	}
	return names
}
