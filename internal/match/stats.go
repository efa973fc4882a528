// internal/match/stats.go
package match

import (
	"fmt"
	"time"
)

// SideStats aggregates one side's rally outcomes across the whole log.
type SideStats struct {
	Points        int `json:"points"`
	EarnedPoints  int `json:"earnedPoints"`
	Errors        int `json:"errors"`
	LongestStreak int `json:"longestStreak"`
}

// Stats is an on-demand aggregate over the event log. It holds no state of
// its own; replaying the same log always reproduces it.
type Stats struct {
	Duration      time.Duration `json:"-"`
	DurationLabel string        `json:"duration"`
	Us            SideStats     `json:"us"`
	Opponent      SideStats     `json:"opponent"`
	FreeballsSent int           `json:"freeballsSent"`
	FreeballsRecv int           `json:"freeballsReceived"`
}

// SetFlow tracks, for one set, the running score differential (us minus
// opponent) after every rally, plus the maximum absolute differential for
// display scaling.
type SetFlow struct {
	SetNumber     int   `json:"setNumber"`
	Differentials []int `json:"differentials"`
	MaxAbs        int   `json:"maxAbs"`
}

// ComputeStats derives the match statistics from an event log.
func ComputeStats(events []Event) Stats {
	var stats Stats

	var first, last time.Time
	streakSide := Side("")
	streak := 0

	for _, evt := range events {
		if !evt.Timestamp.IsZero() {
			if first.IsZero() {
				first = evt.Timestamp
			}
			last = evt.Timestamp
		}

		switch evt.Type {
		case EventPointUs, EventPointOpponent:
			winner := SideUs
			if evt.Type == EventPointOpponent {
				winner = SideOpponent
			}

			scorer, conceder := &stats.Us, &stats.Opponent
			if winner == SideOpponent {
				scorer, conceder = &stats.Opponent, &stats.Us
			}
			scorer.Points++

			if p, ok := evt.Payload.(PointPayload); ok {
				c := Classify(p.Reason)
				if c.Earned {
					scorer.EarnedPoints++
				}
				if c.ConcederError {
					conceder.Errors++
				}
			}

			// A point for one side resets the other side's run.
			if winner == streakSide {
				streak++
			} else {
				streakSide = winner
				streak = 1
			}
			if winner == SideUs && streak > stats.Us.LongestStreak {
				stats.Us.LongestStreak = streak
			}
			if winner == SideOpponent && streak > stats.Opponent.LongestStreak {
				stats.Opponent.LongestStreak = streak
			}

		case EventFreeballSent:
			stats.FreeballsSent++
		case EventFreeballReceived:
			stats.FreeballsRecv++
		}
	}

	if !first.IsZero() {
		stats.Duration = last.Sub(first)
	}
	stats.DurationLabel = formatDuration(stats.Duration)
	return stats
}

// ComputeSetFlows derives the per-set score differential series. Counters
// reset at every SET_START boundary.
func ComputeSetFlows(events []Event) []SetFlow {
	flows := []SetFlow{{SetNumber: 1, Differentials: []int{}}}
	current := &flows[0]
	diff := 0

	for _, evt := range events {
		switch evt.Type {
		case EventSetStart:
			setNumber := current.SetNumber + 1
			if p, ok := evt.Payload.(SetBoundaryPayload); ok && p.SetNumber > 0 {
				setNumber = p.SetNumber
			}
			flows = append(flows, SetFlow{SetNumber: setNumber, Differentials: []int{}})
			current = &flows[len(flows)-1]
			diff = 0

		case EventPointUs, EventPointOpponent:
			if evt.Type == EventPointUs {
				diff++
			} else {
				diff--
			}
			current.Differentials = append(current.Differentials, diff)
			if abs(diff) > current.MaxAbs {
				current.MaxAbs = abs(diff)
			}
		}
	}
	return flows
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
