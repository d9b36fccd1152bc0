package services

import (
	"log"
	"math"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"boulder-scoring-system/models"
)

// The scoring engine is pure: it gets a snapshot of normalized results plus
// a settings snapshot and produces ranked standings. Nothing in here touches
// the database or the cache.

// ScoreSummary aggregates one participant's results under one grading
// system. IFSC fills the count/attempt fields, the point-based strategies
// additionally fill Points and total Attempts.
type ScoreSummary struct {
	Tops         int
	Zones        int
	TopAttempts  int
	ZoneAttempts int
	Points       int
	Attempts     int
}

// TopCounts is the intermediate aggregate the dynamic strategy needs: how
// many participants of the age group topped each boulder, out of how many.
// It is computed once per scoring invocation (pass 1) and handed into the
// per-participant pass; any accepted write invalidates the scoreboard that
// embedded it, so stale fractions never outlive the cache TTL.
type TopCounts struct {
	Tops         map[string]int // boulder ID -> participants who topped it
	Participants int
}

// AggregateTopCounts runs pass 1 of the dynamic strategy over every result
// in the age group.
func AggregateTopCounts(results []models.Result, participantCount int) TopCounts {
	counts := TopCounts{Tops: make(map[string]int), Participants: participantCount}
	for _, res := range results {
		if res.Top {
			counts.Tops[res.BoulderID]++
		}
	}
	return counts
}

// SuccessPercent returns the share of the age group that topped the boulder,
// in percent.
func (t TopCounts) SuccessPercent(boulderID string) float64 {
	if t.Participants <= 0 {
		return 0
	}
	return float64(t.Tops[boulderID]) * 100 / float64(t.Participants)
}

// ScoreIFSC aggregates IFSC-style metrics: tops and zones count, attempts
// only for what was actually reached.
func ScoreIFSC(results []models.Result) ScoreSummary {
	var sum ScoreSummary
	for _, res := range results {
		if res.Top {
			sum.Tops++
			sum.TopAttempts += res.AttemptsTop
		}
		if res.Zone2 || res.Zone1 {
			sum.Zones++
			if res.Zone2 {
				sum.ZoneAttempts += res.AttemptsZone2
			} else {
				sum.ZoneAttempts += res.AttemptsZone1
			}
		}
	}
	return sum
}

// ScorePointBased scores with fixed per-level values. zoneCounts maps
// boulder ID to its zone count, which decides whether a lower zone pays
// Zone1Points (two-zone boulder) or ZonePoints (single-zone boulder).
func ScorePointBased(results []models.Result, zoneCounts map[string]int, settings *models.CompetitionSettings) ScoreSummary {
	return scorePoints(results, zoneCounts, settings, func(string) int {
		return settings.TopPoints
	})
}

// ScorePointBasedDynamic is identical to the fixed strategy except the
// per-top base value depends on how much of the age group topped that
// boulder: the rarer the top, the more it pays.
func ScorePointBasedDynamic(results []models.Result, zoneCounts map[string]int, settings *models.CompetitionSettings, topCounts TopCounts) ScoreSummary {
	return scorePoints(results, zoneCounts, settings, func(boulderID string) int {
		return DynamicTopPoints(settings, topCounts.SuccessPercent(boulderID))
	})
}

func scorePoints(results []models.Result, zoneCounts map[string]int, settings *models.CompetitionSettings, topBase func(boulderID string) int) ScoreSummary {
	var sum ScoreSummary
	for _, res := range results {
		switch {
		case res.Top:
			attemptsUsed := res.AttemptsTop
			sum.Tops++
			base := topBase(res.BoulderID)
			if attemptsUsed == 1 {
				base = settings.FlashPoints
			}
			penalty := settings.AttemptPenalty * maxInt(attemptsUsed-1, 0)
			sum.Points += maxInt(base-penalty, settings.MinTopPoints)
			sum.Attempts += attemptsUsed

		case res.Zone2 || res.Zone1:
			var attemptsUsed, base, minZone int
			twoZone := zoneCounts[res.BoulderID] >= 2
			switch {
			case res.Zone2:
				attemptsUsed = res.AttemptsZone2
				base, minZone = settings.Zone2Points, settings.MinZone2Points
			case twoZone:
				attemptsUsed = res.AttemptsZone1
				base, minZone = settings.Zone1Points, settings.MinZone1Points
			default:
				attemptsUsed = res.AttemptsZone1
				base, minZone = settings.ZonePoints, settings.MinZonePoints
			}
			sum.Zones++
			penalty := settings.AttemptPenalty * maxInt(attemptsUsed-1, 0)
			sum.Points += maxInt(base-penalty, minZone)
			sum.Attempts += attemptsUsed

		default:
			sum.Attempts += res.AttemptsZone1
		}
	}
	return sum
}

// DynamicTopPoints picks the tier value for a boulder's top success rate.
// Buckets are half-open upwards: exactly 90% still pays the 90 tier, only
// strictly above 90% drops to the 100 tier.
func DynamicTopPoints(settings *models.CompetitionSettings, successPct float64) int {
	switch {
	case successPct > 90:
		return settings.TopPoints100
	case successPct > 80:
		return settings.TopPoints90
	case successPct > 70:
		return settings.TopPoints80
	case successPct > 60:
		return settings.TopPoints70
	case successPct > 50:
		return settings.TopPoints60
	case successPct > 40:
		return settings.TopPoints50
	case successPct > 30:
		return settings.TopPoints40
	case successPct > 20:
		return settings.TopPoints30
	case successPct > 10:
		return settings.TopPoints20
	default:
		return settings.TopPoints10
	}
}

// BuildStandings scores every participant and assigns ranks. resultsByID
// holds each participant's results, already filtered to the age group's
// boulder set. Settings may be nil only under IFSC grading.
func BuildStandings(
	participants []models.Participant,
	resultsByID map[string][]models.Result,
	zoneCounts map[string]int,
	gradingSystem string,
	settings *models.CompetitionSettings,
) ([]models.ScoreboardEntry, error) {
	if gradingSystem != models.GradingIFSC && settings == nil {
		return nil, &ConfigurationError{Reason: "no competition settings configured for grading system " + gradingSystem}
	}

	var topCounts TopCounts
	if gradingSystem == models.GradingPointDynamic {
		var all []models.Result
		for _, rs := range resultsByID {
			all = append(all, rs...)
		}
		topCounts = AggregateTopCounts(all, len(participants))
	}

	entries := make([]models.ScoreboardEntry, 0, len(participants))
	for _, p := range participants {
		var sum ScoreSummary
		switch gradingSystem {
		case models.GradingPointBased:
			sum = ScorePointBased(resultsByID[p.ID], zoneCounts, settings)
		case models.GradingPointDynamic:
			sum = ScorePointBasedDynamic(resultsByID[p.ID], zoneCounts, settings, topCounts)
		default:
			sum = ScoreIFSC(resultsByID[p.ID])
		}
		entries = append(entries, models.ScoreboardEntry{
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			Tops:            sum.Tops,
			Zones:           sum.Zones,
			TopAttempts:     sum.TopAttempts,
			ZoneAttempts:    sum.ZoneAttempts,
			Points:          sum.Points,
			Attempts:        sum.Attempts,
		})
	}

	RankEntries(entries, gradingSystem)
	return entries, nil
}

// RankEntries sorts entries and assigns standard competition ranks in
// place: participants equal on every scoring key share a rank, and the rank
// after a tie skips by the tie size. Names only order tied rows for display,
// they never split a rank.
func RankEntries(entries []models.ScoreboardEntry, gradingSystem string) {
	collator := collate.New(language.German, collate.IgnoreCase)
	key := func(e models.ScoreboardEntry) [4]int {
		if gradingSystem == models.GradingPointBased || gradingSystem == models.GradingPointDynamic {
			return [4]int{-e.Points, -e.Tops, -e.Zones, e.Attempts}
		}
		topAtt, zoneAtt := math.MaxInt32, math.MaxInt32
		if e.Tops > 0 {
			topAtt = e.TopAttempts
		}
		if e.Zones > 0 {
			zoneAtt = e.ZoneAttempts
		}
		return [4]int{-e.Tops, -e.Zones, topAtt, zoneAtt}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		ki, kj := key(entries[i]), key(entries[j])
		if ki != kj {
			for n := range ki {
				if ki[n] != kj[n] {
					return ki[n] < kj[n]
				}
			}
		}
		return collator.CompareString(entries[i].ParticipantName, entries[j].ParticipantName) < 0
	})

	var lastKey [4]int
	rank := 0
	for idx := range entries {
		k := key(entries[idx])
		if idx == 0 || k != lastKey {
			rank = idx + 1
			lastKey = k
		}
		entries[idx].Rank = rank
	}
}

// FilterToBoulderSet drops results referencing boulders outside the age
// group's active set. Such records are an anomaly worth a log line, not a
// scoring input.
func FilterToBoulderSet(results []models.Result, zoneCounts map[string]int) []models.Result {
	kept := results[:0]
	for _, res := range results {
		if _, ok := zoneCounts[res.BoulderID]; !ok {
			log.Printf("[SCORING] ignoring result %s: boulder %s is not in the age group's boulder set", res.ID, res.BoulderID)
			continue
		}
		kept = append(kept, res)
	}
	return kept
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
