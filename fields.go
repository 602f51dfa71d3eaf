package chartz

import "github.com/zoobzio/capitan"

// Field keys for chartz events.
var (
	// KeyEndpoint is the endpoint a Source fetches from.
	KeyEndpoint = capitan.NewStringKey("endpoint")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyInterval is the configured poll interval.
	KeyInterval = capitan.NewDurationKey("interval")

	// KeyDuration is how long a fetch or render took.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyStage is where a fetch failed: "fetch" or "decode".
	KeyStage = capitan.NewStringKey("stage")

	// KeyVersion is the snapshot version produced by a successful fetch.
	KeyVersion = capitan.NewIntKey("version")

	// KeyInstance is the identifier of a chart instance.
	KeyInstance = capitan.NewStringKey("instance")

	// KeyTheme is the active theme.
	KeyTheme = capitan.NewStringKey("theme")
)
