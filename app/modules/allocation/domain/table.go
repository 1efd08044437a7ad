package allocationdomain

import (
	"github.com/google/uuid"

	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// Table is a physical table candidate for allocation. TerrainTypeID is nil
// for tables with no terrain configuration; terrain reuse checks are skipped
// for those.
type Table struct {
	ID              uuid.UUID
	Number          sharedtypes.TableNumber
	TerrainTypeID   *uuid.UUID
	TerrainTypeName sharedtypes.TerrainTypeName
}
