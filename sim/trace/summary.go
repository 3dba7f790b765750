package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalSessions       int
	CacheHits           int
	ServerHits          int
	HitRatio            float64
	MeanWeight          float64
	MaxWeight           float64
	MeanRequestHops     float64
	Insertions          int
	UniqueServers       int
	ServingDistribution map[string]int // node ID → sessions served
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ServingDistribution: make(map[string]int),
	}
	if st == nil || len(st.Sessions) == 0 {
		return summary
	}

	totalWeight, totalHops := 0.0, 0
	for _, s := range st.Sessions {
		if s.CacheHit {
			summary.CacheHits++
		} else {
			summary.ServerHits++
		}
		summary.ServingDistribution[s.ServingNode]++
		summary.Insertions += len(s.Inserted)
		totalWeight += s.Weight
		totalHops += s.RequestHops
		if s.Weight > summary.MaxWeight {
			summary.MaxWeight = s.Weight
		}
	}

	n := float64(len(st.Sessions))
	summary.TotalSessions = len(st.Sessions)
	summary.HitRatio = float64(summary.CacheHits) / n
	summary.MeanWeight = totalWeight / n
	summary.MeanRequestHops = float64(totalHops) / n
	summary.UniqueServers = len(summary.ServingDistribution)

	return summary
}
