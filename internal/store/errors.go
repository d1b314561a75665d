package store

import (
	"errors"
	"fmt"

	"github.com/randosoru/apiserver/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// notDeleted is the single predicate excluding soft-deleted records.
// Every read query filters through it; the sentinel value lives in
// types.StatusDeleted and nowhere else.
var notDeleted = fmt.Sprintf("r.status <> %d", types.StatusDeleted)
