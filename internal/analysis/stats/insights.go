package stats

import (
	"sort"

	"github.com/mctn/comtracker/pkg/models"
	"github.com/mctn/comtracker/pkg/utils"
)

// InsightSourcesLimit is the number of sources kept in Insights.
const InsightSourcesLimit = 8

// Insights computes the per-year view of articles. Undated articles count
// toward Total and sources but not toward years or the date range.
func Insights(articles []models.Article) models.Insights {
	ins := models.Insights{Total: len(articles)}

	sources := newCounter()
	years := make(map[int]int)

	for _, a := range articles {
		sources.add(SourceKey(a))

		t, ok := utils.ParseTimestamp(a.Date)
		if !ok {
			continue
		}
		years[t.Year()]++
		if ins.FirstDate == nil || t.Before(*ins.FirstDate) {
			first := t
			ins.FirstDate = &first
		}
		if ins.LastDate == nil || t.After(*ins.LastDate) {
			last := t
			ins.LastDate = &last
		}
	}

	ins.ByYear = make([]models.YearCount, 0, len(years))
	for y, n := range years {
		ins.ByYear = append(ins.ByYear, models.YearCount{Year: y, Count: n})
	}
	sort.Slice(ins.ByYear, func(i, j int) bool { return ins.ByYear[i].Year < ins.ByYear[j].Year })

	ranked := sources.ranked()
	ins.UniqueSources = len(ranked)
	if len(ranked) > InsightSourcesLimit {
		ranked = ranked[:InsightSourcesLimit]
	}
	ins.TopSources = ranked

	if len(ins.ByYear) > 0 {
		ins.AveragePerYear = float64(ins.Total) / float64(len(ins.ByYear))
	}
	return ins
}
