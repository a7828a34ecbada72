// Package deployment provides the core domain model for deployment
// runs.
package deployment

// RunState represents the state of a deployment run.
type RunState string

const (
	// StateIdle is the initial state before the run starts.
	StateIdle RunState = "idle"
	// StateValidatingRepo means repository preconditions are being
	// checked.
	StateValidatingRepo RunState = "validating_repo"
	// StateBranchReady means the working branch exists and is checked
	// out.
	StateBranchReady RunState = "branch_ready"
	// StateVersionBumped means the new version is written to disk.
	StateVersionBumped RunState = "version_bumped"
	// StateChangelogUpdated means the changelog entry was added.
	StateChangelogUpdated RunState = "changelog_updated"
	// StateCommitted means changes are committed and pushed.
	StateCommitted RunState = "committed"
	// StateMerged means the working branch was merged to main.
	StateMerged RunState = "merged"
	// StateTagged means the release tag was created and pushed.
	StateTagged RunState = "tagged"
	// StateReleasePublished means the hosted release was created or
	// deliberately skipped.
	StateReleasePublished RunState = "release_published"
	// StateHistorySaved means the deployment record was appended.
	StateHistorySaved RunState = "history_saved"
	// StateCompleted is the terminal success state.
	StateCompleted RunState = "completed"
	// StateFailed is the terminal failure state.
	StateFailed RunState = "failed"
)

// pipelineOrder is the forward path through the run states.
var pipelineOrder = []RunState{
	StateIdle,
	StateValidatingRepo,
	StateBranchReady,
	StateVersionBumped,
	StateChangelogUpdated,
	StateCommitted,
	StateMerged,
	StateTagged,
	StateReleasePublished,
	StateHistorySaved,
	StateCompleted,
}

// PipelineStates returns the forward path through the run states,
// from idle to completed.
func PipelineStates() []RunState {
	out := make([]RunState, len(pipelineOrder))
	copy(out, pipelineOrder)
	return out
}

// IsTerminal returns true for states with no outgoing transitions.
func (s RunState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Next returns the state that follows s on the forward path and true,
// or s and false when s is terminal or unknown.
func (s RunState) Next() (RunState, bool) {
	for i, st := range pipelineOrder {
		if st == s && i+1 < len(pipelineOrder) {
			return pipelineOrder[i+1], true
		}
	}
	return s, false
}

// String returns the state name.
func (s RunState) String() string {
	return string(s)
}
