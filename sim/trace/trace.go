package trace

// TraceLevel controls the verbosity of session tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSessions captures one record per measured session.
	TraceLevelSessions TraceLevel = "sessions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelSessions: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level      TraceLevel
	MaxRecords int // 0 = unbounded; records past the limit are counted but not kept
}

// SimulationTrace collects session records during an experiment.
type SimulationTrace struct {
	Config   TraceConfig
	Sessions []SessionRecord
	Dropped  int
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Sessions: make([]SessionRecord, 0),
	}
}

// RecordSession appends a session record. Recording is a no-op at TraceLevelNone.
func (st *SimulationTrace) RecordSession(record SessionRecord) {
	if st.Config.Level == TraceLevelNone || st.Config.Level == "" {
		return
	}
	if st.Config.MaxRecords > 0 && len(st.Sessions) >= st.Config.MaxRecords {
		st.Dropped++
		return
	}
	st.Sessions = append(st.Sessions, record)
}
