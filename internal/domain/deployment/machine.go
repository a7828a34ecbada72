package deployment

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Event names for the run state machine.
const (
	EventAdvance statekit.EventType = "ADVANCE"
	EventFail    statekit.EventType = "FAIL"
)

// machineContext is the context carried by the state machine. The run
// pipeline keeps its own data; the machine only tracks position.
type machineContext struct{}

// RunMachine wraps the Statekit state machine for deployment runs. The
// pipeline is linear: ADVANCE walks the forward path one step at a
// time, FAIL jumps to the failed state from anywhere.
type RunMachine struct {
	interpreter *statekit.Interpreter[machineContext]
}

// NewRunMachine creates a state machine positioned at the idle state.
func NewRunMachine() (*RunMachine, error) {
	builder := statekit.NewMachine[machineContext]("deployment-run").
		WithInitial(statekit.StateID(StateIdle))

	states := PipelineStates()
	for i, s := range states {
		sb := builder.State(statekit.StateID(s))
		if s == StateCompleted {
			builder = sb.Final().Done()
			continue
		}
		builder = sb.On(EventAdvance).Target(statekit.StateID(states[i+1])).
			On(EventFail).Target(statekit.StateID(StateFailed)).
			Done()
	}
	builder = builder.State(statekit.StateID(StateFailed)).Final().Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	interp := statekit.NewInterpreter(machine)
	interp.Start()

	return &RunMachine{interpreter: interp}, nil
}

// Advance moves to the next step on the forward path.
func (m *RunMachine) Advance() {
	m.interpreter.Send(statekit.Event{Type: EventAdvance})
}

// Fail moves to the terminal failed state.
func (m *RunMachine) Fail() {
	m.interpreter.Send(statekit.Event{Type: EventFail})
}

// Current returns the current run state.
func (m *RunMachine) Current() RunState {
	return RunState(m.interpreter.State().Value)
}

// IsDone returns true once the machine reached a final state.
func (m *RunMachine) IsDone() bool {
	return m.interpreter.Done()
}
