package recency

import (
	"strconv"
	"strings"
)

// FormatRecentIDs renders ids in the comma-separated form used by older
// consumers, e.g. "3,1,2".
func FormatRecentIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
