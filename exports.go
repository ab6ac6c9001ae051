package booking

import "github.com/xraph/booking/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Actor is re-exported from types package.
type Actor = types.Actor

// Clock is re-exported from types package.
type Clock = types.Clock

// Re-export Money constructors
var (
	USD  = types.USD
	EUR  = types.EUR
	MXN  = types.MXN
	Zero = types.Zero
)

// Re-export Actor constructor
var SystemActor = types.System
