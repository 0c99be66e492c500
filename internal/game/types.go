package game

import (
	"encoding/json"
	"fmt"
)

// Position is a board coordinate; X is the column and Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func NewPosition(x, y int) Position { return Position{X: x, Y: y} }

func (p Position) Valid() bool {
	return p.X >= 0 && p.X < BoardSize && p.Y >= 0 && p.Y < BoardSize
}

// Index is the row-major cell index used by commitments and circuits.
func (p Position) Index() int { return p.Y*BoardSize + p.X }

func (p Position) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// HitKind tags the HitType variant.
type HitKind string

const (
	KindMiss    HitKind = "miss"
	KindHit     HitKind = "hit"
	KindSunk    HitKind = "sunk"
	KindPending HitKind = "pending"
)

// HitType is the outcome of a shot. Pending only ever lives in client-local
// shot maps; Ship is meaningful for Sunk only.
type HitType struct {
	Kind HitKind `json:"kind"`
	Ship int     `json:"ship,omitempty"`
}

var (
	Miss    = HitType{Kind: KindMiss}
	Hit     = HitType{Kind: KindHit}
	Pending = HitType{Kind: KindPending}
)

func Sunk(ship int) HitType { return HitType{Kind: KindSunk, Ship: ship} }

func (h HitType) IsPending() bool { return h.Kind == KindPending }

// Struck reports whether the shot touched a ship.
func (h HitType) Struck() bool { return h.Kind == KindHit || h.Kind == KindSunk }

// Concrete reports whether h is a confirmed outcome that may be published.
func (h HitType) Concrete() bool {
	switch h.Kind {
	case KindMiss, KindHit:
		return true
	case KindSunk:
		return h.Ship >= 0 && h.Ship < FleetSize
	}
	return false
}

func (h HitType) String() string {
	if h.Kind == KindSunk {
		return fmt.Sprintf("sunk(%d)", h.Ship)
	}
	return string(h.Kind)
}

// ShotRecord is one entry of a ShotMap in its serialized form.
type ShotRecord struct {
	Pos Position `json:"pos"`
	Hit HitType  `json:"hit"`
}

// ShotMap records at most one outcome per position.
type ShotMap map[Position]HitType

// Records returns the entries ordered by board index.
func (m ShotMap) Records() []ShotRecord {
	out := make([]ShotRecord, 0, len(m))
	for i := 0; i < BoardSize*BoardSize; i++ {
		p := Position{X: i % BoardSize, Y: i / BoardSize}
		if h, ok := m[p]; ok {
			out = append(out, ShotRecord{Pos: p, Hit: h})
		}
	}
	return out
}

// ShotMapFromRecords rebuilds a map, rejecting duplicate or off-board keys.
func ShotMapFromRecords(recs []ShotRecord) (ShotMap, error) {
	m := make(ShotMap, len(recs))
	for _, r := range recs {
		if !r.Pos.Valid() {
			return nil, fmt.Errorf("shot %s is off the board", r.Pos)
		}
		if _, dup := m[r.Pos]; dup {
			return nil, fmt.Errorf("duplicate shot %s", r.Pos)
		}
		m[r.Pos] = r.Hit
	}
	return m, nil
}

func (m ShotMap) MarshalJSON() ([]byte, error) { return json.Marshal(m.Records()) }

func (m *ShotMap) UnmarshalJSON(b []byte) error {
	var recs []ShotRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return err
	}
	out, err := ShotMapFromRecords(recs)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// Clone returns an independent copy.
func (m ShotMap) Clone() ShotMap {
	out := make(ShotMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SunkShips returns the distinct ship identifiers recorded as sunk.
func (m ShotMap) SunkShips() map[int]bool {
	out := map[int]bool{}
	for _, h := range m {
		if h.Kind == KindSunk {
			out[h.Ship] = true
		}
	}
	return out
}
