package pairingimport

import (
	allocationdomain "github.com/crossed-lances/tablemaster/app/modules/allocation/domain"
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// ImportedPlayer is one player as delivered by the pairing source.
type ImportedPlayer struct {
	ID         sharedtypes.PlayerID   `json:"id"`
	Name       sharedtypes.PlayerName `json:"name"`
	RoundScore sharedtypes.Score      `json:"round_score"`
	TotalScore sharedtypes.Score      `json:"total_score"`
}

// ImportedPairing is one pairing as delivered by the pairing source. Player2
// is nil for a bye. OriginTableNumber is the round 1 seating hint the source
// assigned, absent from round 2 onward.
type ImportedPairing struct {
	Player1           ImportedPlayer           `json:"player1"`
	Player2           *ImportedPlayer          `json:"player2,omitempty"`
	OriginTableNumber *sharedtypes.TableNumber `json:"origin_table_number,omitempty"`
}

// RoundPairings is the payload returned by the pairing source for one round.
type RoundPairings struct {
	RoundNumber sharedtypes.RoundNumber `json:"round_number"`
	Pairings    []ImportedPairing       `json:"pairings"`
}

func toDomainPlayer(p ImportedPlayer) allocationdomain.Player {
	return allocationdomain.Player{
		ID:         p.ID,
		Name:       p.Name,
		RoundScore: p.RoundScore,
		TotalScore: p.TotalScore,
	}
}

// ToDomain converts imported pairings into engine pairings. A missing or
// empty-ID player2 means a bye.
func ToDomain(imported []ImportedPairing) []allocationdomain.Pairing {
	pairings := make([]allocationdomain.Pairing, 0, len(imported))
	for _, p := range imported {
		if p.Player2 == nil || p.Player2.ID == "" {
			pairings = append(pairings, allocationdomain.NewByePairing(toDomainPlayer(p.Player1)))
			continue
		}
		pairings = append(pairings, allocationdomain.NewRegularPairing(
			toDomainPlayer(p.Player1), toDomainPlayer(*p.Player2), p.OriginTableNumber))
	}
	return pairings
}
