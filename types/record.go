package types

import "time"

// Record status values. The groups are: sign-up (1..3), in-progress
// (11..13), completion (21..24). StatusDeleted is a reserved sentinel
// marking soft-deleted rows; it shares the status column but is never
// accepted on the submit paths. No transition rules are enforced between
// the public values.
const (
	StatusSignupFull     = 1
	StatusSignupCarry    = 2
	StatusSignupLast     = 3
	StatusInBattle       = 11
	StatusInBattleCarry  = 12
	StatusInBattleLast   = 13
	StatusDoneFull       = 21
	StatusDoneCarry      = 22
	StatusDoneKill       = 23
	StatusDoneInterrupt  = 24
	StatusDeleted        = 99
)

// MaxDamage bounds the damage field to a game-plausible value.
const MaxDamage = 2_000_000_000

// MaxTeamSize is the number of units in a battle team.
const MaxTeamSize = 5

// ValidStatus reports whether s is a status a submitter may set through
// the submit paths. StatusDeleted is excluded; soft deletion is an
// administrative operation.
func ValidStatus(s int) bool {
	switch s {
	case StatusSignupFull, StatusSignupCarry, StatusSignupLast,
		StatusInBattle, StatusInBattleCarry, StatusInBattleLast,
		StatusDoneFull, StatusDoneCarry, StatusDoneKill, StatusDoneInterrupt:
		return true
	}
	return false
}

// TeamEntry is one unit in a record's team composition.
type TeamEntry struct {
	// UnitID identifies the game character.
	UnitID int `json:"unit_id" db:"unit_id"`

	// Star is the optional star rank, 0 when unreported.
	Star int `json:"star,omitempty" db:"star"`

	// Position is an optional free-text role label.
	Position string `json:"position,omitempty" db:"position"`
}

// Record is one submitter's reported attempt against one boss slot in
// one week of one form.
type Record struct {
	// ID is the surrogate identifier. For update lookups it is scoped to
	// (form, submitter); it is not meaningful across forms.
	ID int `json:"id" db:"id"`

	FormID string `json:"form_id" db:"form_id"`

	// Month is the period label, defaulted from the form when the
	// submitter omits it.
	Month int `json:"month" db:"month"`

	// Week is the battle week, 1..99.
	Week int `json:"week" db:"week"`

	// Boss is the boss slot number, 1..MaxBossSlots.
	Boss int `json:"boss" db:"boss"`

	UserID int `json:"user_id" db:"user_id"`

	Status int `json:"status" db:"status"`

	// Damage dealt; zero when unreported.
	Damage int64 `json:"damage" db:"damage"`

	Comment string `json:"comment" db:"comment"`

	// Team is the ordered team composition, at most MaxTeamSize entries.
	Team []TeamEntry `json:"team" db:"team"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// LastModified is server-assigned on every mutation, never
	// client-writable.
	LastModified time.Time `json:"last_modified" db:"last_modified"`
}

// ExternalRecord is the public view of a record. The submitter appears
// as an ExternalUser whose id is the opaque code (or, on the bot facade,
// the platform-native id the caller supplied). Building this view never
// mutates the stored Record.
type ExternalRecord struct {
	ID           int          `json:"id"`
	FormID       string       `json:"form_id"`
	Month        int          `json:"month"`
	Week         int          `json:"week"`
	Boss         int          `json:"boss"`
	Status       int          `json:"status"`
	Damage       int64        `json:"damage,omitempty"`
	Comment      string       `json:"comment,omitempty"`
	Team         []TeamEntry  `json:"team,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	LastModified time.Time    `json:"last_modified"`
	User         ExternalUser `json:"user"`
}
