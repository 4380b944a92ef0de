package curbside

import "github.com/xraph/curbside/id"

// ID is the primary identifier type for all Curbside entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
