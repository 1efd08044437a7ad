package sharedtypes

// Shared domain types used across modules. Kept as defined types so a table
// number is never handed to something expecting a score.

// PlayerID is the external identifier for a participant, as supplied by the
// pairing source. It is opaque to this service.
type PlayerID string

// PlayerName is the display name for a participant.
type PlayerName string

// TableNumber is the physical number of a table in the venue.
type TableNumber int

// RoundNumber is the 1-based number of a round within a tournament.
type RoundNumber int

// Score is a points value, either for a single round or a running total.
type Score int

// TerrainTypeName is the display name of a table's terrain configuration.
type TerrainTypeName string
