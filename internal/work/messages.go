package work

// Dispatch asks a worker to process one tick of an item. Rate and Weights
// are copied from the item, so the worker needs no catalog.
type Dispatch struct {
	Item    ItemID
	Kind    Kind
	Rate    float64
	Weights Weights
}

// Report is a worker's answer to a Dispatch. State is the worker's resources
// after the work was performed, for display only.
//
// A Report with a zero Item is telemetry: the worker's resources changed
// without any work, as after a buff. It carries no effort.
type Report struct {
	Item        ItemID
	Worker      string
	EffortDelta float64
	State       WorkerState
}

// Telemetry reports whether r only carries worker state.
func (r Report) Telemetry() bool {
	return r.Item == 0
}

// WorkerState is the telemetry a worker publishes about itself.
type WorkerState struct {
	Name            string          `json:"name"`
	Characteristics Characteristics `json:"characteristics"`
	Resources       Resources       `json:"resources"`
	Processed       uint64          `json:"processed"`
}

// Submission requests a new open item. Source names the submitter: a worker
// name, "scheduler", or an external caller such as "inbox" or "tui".
type Submission struct {
	Kind    Kind
	Variant string
	Source  string
}
