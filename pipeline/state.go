package pipeline

// State is a pipeline stage boundary.
type State int

// Pipeline states in execution order. Aborted is entered from any state
// when a stage fails fatally.
const (
	StateInit State = iota
	StateConfigured
	StateEvaluated
	StateSelected
	StateFinalized
	StateForecasted
	StateExported
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConfigured:
		return "CONFIGURED"
	case StateEvaluated:
		return "EVALUATED"
	case StateSelected:
		return "SELECTED"
	case StateFinalized:
		return "FINALIZED"
	case StateForecasted:
		return "FORECASTED"
	case StateExported:
		return "EXPORTED"
	case StateAborted:
		return "ABORTED"
	}
	return "UNKNOWN"
}

// Terminal reports whether no further stage can run.
func (s State) Terminal() bool {
	return s == StateExported || s == StateAborted
}
