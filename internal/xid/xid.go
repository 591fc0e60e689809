package xid

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func New(prefix string) string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}

// Invoice groups the ledger rows of one checkout. It is minute-granular, so two
// checkouts within the same minute share an id.
func Invoice(at time.Time) string {
	return "INV-" + at.Format("20060102-1504")
}
