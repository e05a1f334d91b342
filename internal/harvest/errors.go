package harvest

import "errors"

// Sentinel errors for harvest configuration. All of these surface
// before the first iteration; once the engine is iterating it always
// terminates in a terminal state rather than an error.
var (
	// ErrNoSeeds indicates an empty seed list.
	ErrNoSeeds = errors.New("harvest: at least one seed is required")
	// ErrNoModules indicates an empty data module list.
	ErrNoModules = errors.New("harvest: at least one data module is required")
	// ErrDuplicateSeed indicates two seeds resolving to the same mesh cell.
	ErrDuplicateSeed = errors.New("harvest: duplicate seed cell")
	// ErrBadParams indicates contradictory or invalid engine, jury, or
	// regularizer parameters.
	ErrBadParams = errors.New("harvest: invalid parameters")
	// ErrAlreadyRun indicates a second Run call on the same engine.
	ErrAlreadyRun = errors.New("harvest: engine has already run")
)
