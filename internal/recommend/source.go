package recommend

import (
	"strings"

	"magick-workers/internal/models"
)

// sourceRanks covers every source except local-sponsor, whose rank depends
// on the monetization mode.
var sourceRanks = map[string]int{
	models.SourceFever:        1,
	models.SourceViator:       1,
	models.SourceGetYourGuide: 1,
	models.SourceGroupon:      1,
	models.SourceTicketmaster: 0,
	models.SourceStubHub:      0,
}

// SourceRank returns the preference rank (0..3) of a business source.
// Unknown sources rank 0.
func SourceRank(source string, mode models.MonetizationMode) int {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == models.SourceLocalSponsor {
		if mode == models.MonetizationSponsor {
			return 3
		}
		return 2
	}
	return sourceRanks[source]
}
