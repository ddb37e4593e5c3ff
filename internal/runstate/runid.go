package runstate

import (
	"time"

	"github.com/google/uuid"
)

const runIDTimeLayout = "20060102-150405"

// NewRunID returns a sortable, collision-resistant run id such as
// 20260314-093000-1a2b3c4d.
func NewRunID(now time.Time) string {
	return now.UTC().Format(runIDTimeLayout) + "-" + uuid.NewString()[:8]
}
