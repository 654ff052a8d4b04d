package production

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const batchNumberPrefix = "PB"

// GenerateBatchNumber builds a human-readable batch number: a date prefix
// plus a random suffix. Collisions are possible in theory and surface as a
// uniqueness violation at insert time; callers retry with a fresh number.
func GenerateBatchNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("%s-%s-%s", batchNumberPrefix, now.Format("20060102"), suffix)
}
