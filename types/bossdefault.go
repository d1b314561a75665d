package types

// Static per-month default boss rosters. A form's resolved roster uses
// the persisted BossSlot for a slot when one exists, otherwise the entry
// for the form's month here, otherwise the generic fallback.
//
// Keyed by month label (e.g. 202608). Entries are indexed by boss number
// minus one.
var defaultBossRosters = map[int][MaxBossSlots]BossSlot{
	202607: {
		{Boss: 1, Name: "Goblin Great", Image: "bosses/202607_1.png", HP: [4]int64{6_000_000, 6_000_000, 12_000_000, 19_000_000}},
		{Boss: 2, Name: "Wild Griffon", Image: "bosses/202607_2.png", HP: [4]int64{8_000_000, 8_000_000, 14_000_000, 20_000_000}},
		{Boss: 3, Name: "Basilisk", Image: "bosses/202607_3.png", HP: [4]int64{10_000_000, 10_000_000, 17_000_000, 21_000_000}},
		{Boss: 4, Name: "Mesarthim", Image: "bosses/202607_4.png", HP: [4]int64{12_000_000, 12_000_000, 19_000_000, 23_000_000}},
		{Boss: 5, Name: "Orleon", Image: "bosses/202607_5.png", HP: [4]int64{15_000_000, 15_000_000, 20_000_000, 25_000_000}},
	},
	202608: {
		{Boss: 1, Name: "Wyvern", Image: "bosses/202608_1.png", HP: [4]int64{6_000_000, 6_000_000, 12_000_000, 19_000_000}},
		{Boss: 2, Name: "Raging Cyclops", Image: "bosses/202608_2.png", HP: [4]int64{8_000_000, 8_000_000, 14_000_000, 20_000_000}},
		{Boss: 3, Name: "Medusa", Image: "bosses/202608_3.png", HP: [4]int64{10_000_000, 10_000_000, 17_000_000, 21_000_000}},
		{Boss: 4, Name: "Grim Burster", Image: "bosses/202608_4.png", HP: [4]int64{12_000_000, 12_000_000, 19_000_000, 23_000_000}},
		{Boss: 5, Name: "Twilight Caon", Image: "bosses/202608_5.png", HP: [4]int64{15_000_000, 15_000_000, 20_000_000, 25_000_000}},
	},
}

// DefaultBossSlot returns the default configuration for a boss number in
// the given month. Boss numbers outside 1..MaxBossSlots and unknown
// months yield the generic fallback.
func DefaultBossSlot(month, boss int) BossSlot {
	if boss >= 1 && boss <= MaxBossSlots {
		if roster, ok := defaultBossRosters[month]; ok {
			return roster[boss-1]
		}
	}
	return BossSlot{
		Boss:  boss,
		Name:  "Unknown",
		Image: "bosses/unknown.png",
		HP:    [4]int64{0, 0, 0, 0},
	}
}
