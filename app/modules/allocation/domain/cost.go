package allocationdomain

import (
	"context"
	"fmt"
)

// Cost tier constants. The magnitudes are intentionally far separated so the
// tiers compare lexicographically under plain integer addition: any table
// reuse outweighs any number of terrain reuses, and any terrain reuse
// outweighs any table-number preference.
const (
	CostTableReuse   = 100000
	CostTerrainReuse = 10000
	CostTableNumber  = 1
)

// CostBreakdown splits a total cost into its tiers.
type CostBreakdown struct {
	TableReuse   int `json:"table_reuse"`
	TerrainReuse int `json:"terrain_reuse"`
	TableNumber  int `json:"table_number"`
}

// CostResult is the outcome of scoring one candidate table for one pairing.
type CostResult struct {
	TotalCost int           `json:"total_cost"`
	Breakdown CostBreakdown `json:"breakdown"`

	// Reasons holds one sentence per reuse event, in the order found.
	Reasons []string `json:"reasons"`

	// TableReuses and TerrainReuses list the players behind each nonzero
	// breakdown tier so callers can raise typed conflicts.
	TableReuses   []Player `json:"-"`
	TerrainReuses []Player `json:"-"`
}

// CostCalculator scores candidate tables against a pairing's table and
// terrain history. It is stateless; all history lives in the
// TournamentHistory passed per call.
type CostCalculator struct{}

// NewCostCalculator creates a CostCalculator.
func NewCostCalculator() *CostCalculator {
	return &CostCalculator{}
}

// Calculate returns the cost of seating the given players at the table.
// Terrain reuse is skipped entirely when the table has no terrain type.
func (c *CostCalculator) Calculate(ctx context.Context, players []Player, table Table, history *TournamentHistory) (CostResult, error) {
	result := CostResult{}

	for _, player := range players {
		used, err := history.HasPlayerUsedTable(ctx, player.ID, table.Number)
		if err != nil {
			return CostResult{}, fmt.Errorf("failed to check table history for player %s: %w", player.ID, err)
		}
		if used {
			result.Breakdown.TableReuse += CostTableReuse
			result.TableReuses = append(result.TableReuses, player)
			result.Reasons = append(result.Reasons,
				fmt.Sprintf("%s has already played on table %d", player.Name, table.Number))
		}
	}

	if table.TerrainTypeID != nil {
		for _, player := range players {
			experienced, err := history.HasPlayerExperiencedTerrain(ctx, player.ID, table.TerrainTypeID)
			if err != nil {
				return CostResult{}, fmt.Errorf("failed to check terrain history for player %s: %w", player.ID, err)
			}
			if experienced {
				result.Breakdown.TerrainReuse += CostTerrainReuse
				result.TerrainReuses = append(result.TerrainReuses, player)
				result.Reasons = append(result.Reasons,
					fmt.Sprintf("%s has already played on %s terrain", player.Name, table.TerrainTypeName))
			}
		}
	}

	result.Breakdown.TableNumber = CostTableNumber * int(table.Number)
	result.TotalCost = result.Breakdown.TableReuse + result.Breakdown.TerrainReuse + result.Breakdown.TableNumber

	return result, nil
}
