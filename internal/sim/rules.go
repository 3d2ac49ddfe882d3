package sim

import (
	"encoding/binary"
	"hash/fnv"
)

// UnitStats are the base attributes of one entity kind.
type UnitStats struct {
	HP          int32 `yaml:"hp" json:"hp"`
	Damage      int32 `yaml:"damage" json:"damage"`
	Speed       int32 `yaml:"speed" json:"speed"`
	Sight       int32 `yaml:"sight" json:"sight"`
	Range       int32 `yaml:"range" json:"range"`
	CorpseJelly int32 `yaml:"corpse_jelly" json:"corpse_jelly"`
}

// Balance holds every gameplay tuning value. Both peers must agree on it
// exactly; see Rules.Fingerprint.
type Balance struct {
	StartingAnts  int32 `yaml:"starting_ants" json:"starting_ants"`
	StartingJelly int32 `yaml:"starting_jelly" json:"starting_jelly"`

	Ant     UnitStats `yaml:"ant" json:"ant"`
	Queen   UnitStats `yaml:"queen" json:"queen"`
	Hive    UnitStats `yaml:"hive" json:"hive"`
	Spitter UnitStats `yaml:"spitter" json:"spitter"`
	Aphid   UnitStats `yaml:"aphid" json:"aphid"`
	Beetle  UnitStats `yaml:"beetle" json:"beetle"`
	Mantis  UnitStats `yaml:"mantis" json:"mantis"`

	CarryCapacity     int32 `yaml:"carry_capacity" json:"carry_capacity"`
	HarvestRate       int32 `yaml:"harvest_rate" json:"harvest_rate"`
	HarvestRange      int32 `yaml:"harvest_range" json:"harvest_range"`
	HivePassiveIncome int32 `yaml:"hive_passive_income" json:"hive_passive_income"`
	SpawnCost         int32 `yaml:"spawn_cost" json:"spawn_cost"`
	SpawnCooldown     int32 `yaml:"spawn_cooldown" json:"spawn_cooldown"`
	QueenMergeCost    int32 `yaml:"queen_merge_cost" json:"queen_merge_cost"`
	MergeRange        int32 `yaml:"merge_range" json:"merge_range"`
	FoundHiveRange    int32 `yaml:"found_hive_range" json:"found_hive_range"`
	SpitterMorphCost  int32 `yaml:"spitter_morph_cost" json:"spitter_morph_cost"`
	CorpseDecayTicks  int32 `yaml:"corpse_decay_ticks" json:"corpse_decay_ticks"`

	WildlifeSpawnInterval int32 `yaml:"wildlife_spawn_interval" json:"wildlife_spawn_interval"`
	WildlifeAggroRange    int32 `yaml:"wildlife_aggro_range" json:"wildlife_aggro_range"`
	WildlifeHiveExclusion int32 `yaml:"wildlife_hive_exclusion" json:"wildlife_hive_exclusion"`
	MaxAphids             int32 `yaml:"max_aphids" json:"max_aphids"`
	MaxBeetles            int32 `yaml:"max_beetles" json:"max_beetles"`
	MaxMantises           int32 `yaml:"max_mantises" json:"max_mantises"`

	SeparationRadius int32 `yaml:"separation_radius" json:"separation_radius"`
}

// Rules is the complete parameter set of a match.
type Rules struct {
	TickRate  int32   `yaml:"tick_rate" json:"tick_rate"`
	MapWidth  int32   `yaml:"map_width" json:"map_width"`
	MapHeight int32   `yaml:"map_height" json:"map_height"`
	Balance   Balance `yaml:"balance" json:"balance"`
}

// DefaultRules returns the standard ruleset.
func DefaultRules() Rules {
	return Rules{
		TickRate:  10,
		MapWidth:  100,
		MapHeight: 100,
		Balance: Balance{
			StartingAnts:  5,
			StartingJelly: 0,

			Ant:     UnitStats{HP: 20, Damage: 5, Speed: 80, Sight: 5, Range: 1, CorpseJelly: 10},
			Queen:   UnitStats{HP: 60, Speed: 40, Sight: 6},
			Hive:    UnitStats{HP: 200, Sight: 8},
			Spitter: UnitStats{HP: 15, Damage: 4, Speed: 70, Sight: 7, Range: 3, CorpseJelly: 8},
			Aphid:   UnitStats{HP: 10, CorpseJelly: 15},
			Beetle:  UnitStats{HP: 40, Damage: 4, Speed: 50, Range: 1, CorpseJelly: 30},
			Mantis:  UnitStats{HP: 80, Damage: 8, Speed: 60, Range: 1, CorpseJelly: 60},

			CarryCapacity:     10,
			HarvestRate:       5,
			HarvestRange:      1,
			HivePassiveIncome: 1,
			SpawnCost:         10,
			SpawnCooldown:     30,
			QueenMergeCost:    5,
			MergeRange:        3,
			FoundHiveRange:    1,
			SpitterMorphCost:  15,
			CorpseDecayTicks:  300,

			WildlifeSpawnInterval: 100,
			WildlifeAggroRange:    5,
			WildlifeHiveExclusion: 10,
			MaxAphids:             6,
			MaxBeetles:            3,
			MaxMantises:           2,

			SeparationRadius: 400,
		},
	}
}

// Stats returns the base attributes of a kind.
func (b *Balance) Stats(k Kind) UnitStats {
	switch k {
	case KindAnt:
		return b.Ant
	case KindQueen:
		return b.Queen
	case KindHive:
		return b.Hive
	case KindSpitter:
		return b.Spitter
	case KindAphid:
		return b.Aphid
	case KindBeetle:
		return b.Beetle
	case KindMantis:
		return b.Mantis
	}
	return UnitStats{}
}

// Fingerprint is a FNV-1a hash over the canonical encoding of every rule.
// Peers refuse to play with mismatched fingerprints.
func (r Rules) Fingerprint() uint32 {
	h := fnv.New32a()
	var buf [4]byte
	put := func(v int32) {
		binary.BigEndian.PutUint32(buf[:], uint32(v))
		h.Write(buf[:])
	}
	putStats := func(s UnitStats) {
		put(s.HP)
		put(s.Damage)
		put(s.Speed)
		put(s.Sight)
		put(s.Range)
		put(s.CorpseJelly)
	}
	b := r.Balance
	put(r.TickRate)
	put(r.MapWidth)
	put(r.MapHeight)
	put(b.StartingAnts)
	put(b.StartingJelly)
	for _, s := range []UnitStats{b.Ant, b.Queen, b.Hive, b.Spitter, b.Aphid, b.Beetle, b.Mantis} {
		putStats(s)
	}
	for _, v := range []int32{
		b.CarryCapacity, b.HarvestRate, b.HarvestRange, b.HivePassiveIncome,
		b.SpawnCost, b.SpawnCooldown, b.QueenMergeCost, b.MergeRange,
		b.FoundHiveRange, b.SpitterMorphCost, b.CorpseDecayTicks,
		b.WildlifeSpawnInterval, b.WildlifeAggroRange, b.WildlifeHiveExclusion,
		b.MaxAphids, b.MaxBeetles, b.MaxMantises, b.SeparationRadius,
	} {
		put(v)
	}
	return h.Sum32()
}
