package allocationdomain

import (
	"github.com/crossed-lances/tablemaster/app/shared/sharedtypes"
)

// Player is one participant's side of a pairing.
type Player struct {
	ID         sharedtypes.PlayerID
	Name       sharedtypes.PlayerName
	RoundScore sharedtypes.Score
	TotalScore sharedtypes.Score
}

type pairingKind int

const (
	pairingRegular pairingKind = iota
	pairingBye
)

// Pairing is one round's matchup: two players, or a single player on a bye.
// Construct through NewRegularPairing or NewByePairing so bye-only code paths
// can never see a second player.
type Pairing struct {
	kind    pairingKind
	player1 Player
	player2 Player

	// originTable is the table hint from the pairing source. Only meaningful
	// in round 1.
	originTable *sharedtypes.TableNumber
}

// NewRegularPairing creates a pairing between two players. originTable may be
// nil when the source supplied no table hint.
func NewRegularPairing(p1, p2 Player, originTable *sharedtypes.TableNumber) Pairing {
	return Pairing{
		kind:        pairingRegular,
		player1:     p1,
		player2:     p2,
		originTable: originTable,
	}
}

// NewByePairing creates a pairing for a player with no opponent this round.
func NewByePairing(p Player) Pairing {
	return Pairing{
		kind:    pairingBye,
		player1: p,
	}
}

// IsBye reports whether the pairing has no opponent.
func (p Pairing) IsBye() bool {
	return p.kind == pairingBye
}

// Player1 returns the first (or only) player.
func (p Pairing) Player1() Player {
	return p.player1
}

// Player2 returns the second player and whether one exists.
func (p Pairing) Player2() (Player, bool) {
	if p.kind == pairingBye {
		return Player{}, false
	}
	return p.player2, true
}

// Players returns the players in the pairing, one entry for a bye.
func (p Pairing) Players() []Player {
	if p.kind == pairingBye {
		return []Player{p.player1}
	}
	return []Player{p.player1, p.player2}
}

// OriginTable returns the round-1 table hint and whether one was supplied.
func (p Pairing) OriginTable() (sharedtypes.TableNumber, bool) {
	if p.originTable == nil {
		return 0, false
	}
	return *p.originTable, true
}

// CombinedTotalScore is the sum of both players' cumulative tournament
// scores, or the sole player's score for a bye. Higher combined scores get
// first pick of tables.
func (p Pairing) CombinedTotalScore() sharedtypes.Score {
	if p.kind == pairingBye {
		return p.player1.TotalScore
	}
	return p.player1.TotalScore + p.player2.TotalScore
}

// TieBreakKey is the lexicographically smaller player ID, used to order
// pairings with equal combined scores deterministically.
func (p Pairing) TieBreakKey() sharedtypes.PlayerID {
	if p.kind == pairingBye {
		return p.player1.ID
	}
	if p.player2.ID < p.player1.ID {
		return p.player2.ID
	}
	return p.player1.ID
}
