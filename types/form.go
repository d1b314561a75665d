package types

import "time"

// Form status values. Any status other than FormReadWrite locks the form
// against new or updated records; reads stay open.
const (
	FormReadWrite = 0
	FormReadOnly  = 1
	FormHidden    = 2
)

// MaxBossSlots is the number of boss encounters per form, and therefore
// the upper bound on boss numbers and on slot updates per modify call.
const MaxBossSlots = 5

// Form represents one recurring event cycle: a roster of up to five boss
// encounters and a submission window.
//
// The ID is a 32-character lowercase hex string (128 bits) allocated at
// creation and immutable afterwards. It routes records and names the
// live-sync room for the form, and since forms are unlisted it doubles
// as a capability token for watching the room.
type Form struct {
	ID          string    `json:"id" db:"id"`
	OwnerID     int       `json:"-" db:"owner_id"`
	Month       int       `json:"month" db:"month"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Status      int       `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Locked reports whether the form rejects record mutations.
func (f Form) Locked() bool {
	return f.Status != FormReadWrite
}

// BossSlot configures one boss encounter within a form. At most one slot
// exists per (form, boss number); missing slots fall back to the static
// defaults for the form's month.
type BossSlot struct {
	FormID string `json:"-" db:"form_id"`

	// Boss is the slot number, 1..MaxBossSlots, unique within a form.
	Boss int `json:"boss" db:"boss"`

	Name  string `json:"name" db:"name"`
	Image string `json:"image" db:"image"`

	// HP holds the boss health threshold for each of up to four phases.
	HP [4]int64 `json:"hp" db:"hp"`
}

// ExternalForm is the public view of a form together with its resolved
// boss roster.
type ExternalForm struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Month       int        `json:"month"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      int        `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	Bosses      []BossSlot `json:"bosses"`
}
