package model

// Karma is a per-user snapshot computed from active interactions. It is
// never persisted.
type Karma struct {
	UserID int64            `json:"userId"`
	Kinds  map[Kind]int     `json:"kinds"`  // interaction count per kind
	Totals map[Kind]float64 `json:"totals"` // summed score per kind
	Score  float64          `json:"score"`
}

// NewKarma returns an empty snapshot for userID.
func NewKarma(userID int64) *Karma {
	return &Karma{
		UserID: userID,
		Kinds:  make(map[Kind]int),
		Totals: make(map[Kind]float64),
	}
}

// Add folds one aggregated (kind, count, sum) row into the snapshot.
func (k *Karma) Add(kind Kind, count int, total float64) {
	k.Kinds[kind] += count
	k.Totals[kind] += total
	k.Score += total
}
