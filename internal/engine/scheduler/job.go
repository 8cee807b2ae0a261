package scheduler

import (
	"go.trai.ch/sweet/internal/core/domain"
	"go.trai.ch/zerr"
)

// State is the lifecycle position of a job.
type State int

const (
	// StateWaiting means the job has unfinished prerequisites or has not been picked up.
	StateWaiting State = iota
	// StateProcessing means a worker owns the job.
	StateProcessing
	// StateComplete is terminal.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateProcessing:
		return "processing"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Outcome records how a completed job ended.
type Outcome int

const (
	// OutcomePending is the outcome of a job that has not completed.
	OutcomePending Outcome = iota
	// OutcomeSucceeded means the visit returned no error.
	OutcomeSucceeded
	// OutcomeFailed means the visit returned an error.
	OutcomeFailed
	// OutcomeSkipped means a prerequisite did not succeed and the target was not visited.
	OutcomeSkipped
)

// Job is the scheduling unit of one target during one traversal.
type Job struct {
	target *domain.Target
	rank   int
	state  State

	// pending counts prerequisites that have not completed.
	pending int
	// release lists the jobs whose prerequisite this job is.
	release []*Job

	blocked bool
	outcome Outcome
}

// Target returns the target the job visits.
func (j *Job) Target() *domain.Target {
	return j.target
}

// Rank returns the height (postorder) or depth (preorder) used to order the job.
func (j *Job) Rank() int {
	return j.rank
}

// State returns the job's lifecycle state.
func (j *Job) State() State {
	return j.state
}

// Outcome returns how the job ended.
func (j *Job) Outcome() Outcome {
	return j.outcome
}

// transition moves the job to the next state.
// Only waiting -> processing -> complete is allowed.
func (j *Job) transition(to State) error {
	if to != j.state+1 || to > StateComplete {
		err := zerr.With(domain.ErrInvalidJobTransition, "target", j.target.ID())
		err = zerr.With(err, "from", j.state.String())
		return zerr.With(err, "to", to.String())
	}
	if to == StateProcessing && j.pending != 0 {
		return zerr.With(zerr.With(domain.ErrInvalidJobTransition, "target", j.target.ID()), "pending", j.pending)
	}
	j.state = to
	return nil
}
