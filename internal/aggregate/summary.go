package aggregate

import (
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/collision.report/internal/collision"
)

// Summary describes the filtered set of the last pass.
type Summary struct {
	Records        int     `json:"records"`
	Victims        int     `json:"victims"`
	Fatalities     int     `json:"fatalities"`
	SevereInjuries int     `json:"severe_injuries"`
	KnownAges      int     `json:"known_ages"`
	MeanAge        float64 `json:"mean_age"`
	AgeStdDev      float64 `json:"age_stddev"`
}

// Summary counts only victims that passed the filters.
func (e *Engine) Summary() Summary {
	s := Summary{Records: len(e.result.Records)}
	var ages []float64
	for _, rv := range e.result.Records {
		for _, v := range rv.VisibleVictims() {
			s.Victims++
			switch v.Injury {
			case collision.Fatal:
				s.Fatalities++
			case collision.SevereInjury:
				s.SevereInjuries++
			}
			if v.AgeKnown() {
				ages = append(ages, float64(v.Age))
			}
		}
	}
	s.KnownAges = len(ages)
	switch {
	case len(ages) >= 2:
		s.MeanAge, s.AgeStdDev = stat.MeanStdDev(ages, nil)
	case len(ages) == 1:
		s.MeanAge = ages[0]
	}
	return s
}
