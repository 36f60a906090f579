// Package sampling generates diversified multi-dimensional sampling plans
// (sort x time-filter x sub-source x offset) to maximize unique-post yield
// per collector run.
package sampling

import (
	"math"
	"math/rand"
	"time"
)

// Sort is a forum listing sort order.
type Sort string

const (
	SortHot           Sort = "hot"
	SortNew           Sort = "new"
	SortTop           Sort = "top"
	SortRising        Sort = "rising"
	SortControversial Sort = "controversial"
)

var allSorts = []Sort{SortHot, SortNew, SortTop, SortRising, SortControversial}

// TimeFilter only applies to Top/Controversial strategies.
type TimeFilter string

const (
	TimeHour  TimeFilter = "hour"
	TimeDay   TimeFilter = "day"
	TimeWeek  TimeFilter = "week"
	TimeMonth TimeFilter = "month"
	TimeYear  TimeFilter = "year"
	TimeAll   TimeFilter = "all"
)

var rankedTimeFilters = []TimeFilter{TimeHour, TimeDay, TimeWeek, TimeMonth, TimeYear, TimeAll}

// Strategy describes one API listing call to make.
type Strategy struct {
	SubSource  string
	Sort       Sort
	TimeFilter TimeFilter // empty unless Sort is Top or Controversial
	Limit      int
	Before     int64 // unix seconds, 0 if unset
	After      int64 // unix seconds, 0 if unset
	Offset     int
}

const maxLimit = 100

// Planner builds diversified sampling plans across sort, time-filter,
// sub-source, and offset.
type Planner struct {
	rng *rand.Rand
}

// New creates a Planner. If rng is nil, a new source with the fixed seed 1
// is used.
func New(rng *rand.Rand) *Planner {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Planner{rng: rng}
}

// Plan builds a shuffled strategy list for subSources targeting targetCount
// unique posts in total, spread evenly across the sub-sources.
func (p *Planner) Plan(subSources []string, targetCount int) []Strategy {
	if len(subSources) == 0 || targetCount <= 0 {
		return nil
	}

	targetPerSub := int(math.Ceil(float64(targetCount) / float64(len(subSources))))

	var strategies []Strategy
	for _, sub := range subSources {
		strategies = append(strategies, p.planSubSource(sub, targetPerSub)...)
	}

	p.rng.Shuffle(len(strategies), func(i, j int) {
		strategies[i], strategies[j] = strategies[j], strategies[i]
	})

	return strategies
}

func (p *Planner) planSubSource(sub string, targetPerSub int) []Strategy {
	var out []Strategy

	// One strategy per sort method with limit ceil(targetPerSub / |sorts|).
	perSortLimit := clampLimit(int(math.Ceil(float64(targetPerSub) / float64(len(allSorts)))))
	for _, sort := range allSorts {
		s := Strategy{SubSource: sub, Sort: sort, Limit: perSortLimit}
		if sort == SortTop || sort == SortControversial {
			s.TimeFilter = TimeAll
		}
		out = append(out, s)
	}

	// For top/controversial, add 3 extra with random time filters.
	for _, sort := range []Sort{SortTop, SortControversial} {
		for i := 0; i < 3; i++ {
			out = append(out, Strategy{
				SubSource:  sub,
				Sort:       sort,
				TimeFilter: rankedTimeFilters[p.rng.Intn(len(rankedTimeFilters))],
				Limit:      clampLimit(perSortLimit),
			})
		}
	}

	// 2 extra strategies for new/hot/rising with limit=25.
	for _, sort := range []Sort{SortNew, SortHot, SortRising} {
		for i := 0; i < 2; i++ {
			out = append(out, Strategy{SubSource: sub, Sort: sort, Limit: 25})
		}
	}

	// 5 random 2-day time windows in the last 30 days with sort=new.
	now := time.Now().Unix()
	const day = int64(24 * 60 * 60)
	for i := 0; i < 5; i++ {
		windowStart := now - p.rng.Int63n(30*day)
		out = append(out, Strategy{
			SubSource: sub,
			Sort:      SortNew,
			After:     windowStart,
			Before:    windowStart + 2*day,
			Limit:     clampLimit(perSortLimit),
		})
	}

	// Random offsets {50,100,200,400,600}+rand(50) for hot/rising.
	baseOffsets := []int{50, 100, 200, 400, 600}
	for _, sort := range []Sort{SortHot, SortRising} {
		for _, base := range baseOffsets {
			out = append(out, Strategy{
				SubSource: sub,
				Sort:      sort,
				Offset:    base + p.rng.Intn(50),
				Limit:     clampLimit(25),
			})
		}
	}

	return out
}

func clampLimit(n int) int {
	if n <= 0 {
		return 1
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
