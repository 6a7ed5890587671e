package quote

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// GenerateNumber returns a default display number such as TKL-2025-4821.
// Collisions are possible; the quote_number unique constraint decides.
func GenerateNumber(prefix string, now time.Time) string {
	return formatNumber(prefix, now.Year(), 1000+rand.IntN(9000))
}

func formatNumber(prefix string, year, suffix int) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return fmt.Sprintf("%d-%04d", year, suffix)
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, suffix)
}
