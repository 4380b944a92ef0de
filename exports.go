package curbside

import "github.com/xraph/curbside/types"

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Money constructors
var (
	USD       = types.USD
	CAD       = types.CAD
	Zero      = types.Zero
	FromMajor = types.FromMajor
	Sum       = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
