package hub

import (
	"errors"
	"sync"

	"notifyhub/internal/singleton"
)

// Process-wide hub. Constructed lazily on the first Default call; every
// caller for the life of the process gets the same instance.
var (
	configureMu sync.Mutex
	customBuild func() (*Hub, error)

	global = singleton.New(buildGlobal)
)

func buildGlobal() (*Hub, error) {
	configureMu.Lock()
	build := customBuild
	configureMu.Unlock()

	if build != nil {
		return build()
	}
	return New(Config{})
}

// Configure installs the builder used to construct the process-wide hub.
// It must run before the first Default call; once the instance exists it
// returns ErrConfigured. Passing configuration here is the only way to
// influence the default instance.
func Configure(build func() (*Hub, error)) error {
	if build == nil {
		return errors.New("hub: nil builder")
	}
	if global.Built() {
		return ErrConfigured
	}

	configureMu.Lock()
	customBuild = build
	configureMu.Unlock()
	return nil
}

// Default returns the process-wide hub, constructing it on first demand.
// A failed construction leaves the provider unconstructed so a later call
// may retry.
func Default() (*Hub, error) {
	return global.Get()
}

// ResetForTesting drops the process-wide instance and its builder. Test
// isolation only; must not run concurrently with production traffic.
func ResetForTesting() {
	global.Reset()
	configureMu.Lock()
	customBuild = nil
	configureMu.Unlock()
}
