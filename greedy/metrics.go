package greedy

import (
	"github.com/uber-go/tally"
)

// Metrics contains all the metrics relevant to a greedy allocation run
type Metrics struct {
	// Running indicates if an allocation run is currently in flight
	Running tally.Gauge

	// TasksCommitted counts the tasks that ended a run committed to a server
	TasksCommitted tally.Counter
	// TasksRejected counts the tasks no server could take
	TasksRejected tally.Counter
	// ServerAttempts counts the candidate servers asked for a speed plan
	ServerAttempts tally.Counter

	// SocialWelfare reports the summed value of the committed deadline
	// feasible tasks of the last run
	SocialWelfare tally.Gauge

	// RunDuration times one whole allocation pass
	RunDuration tally.Timer
}

// NewMetrics returns a new Metrics struct with all metrics initialized and
// rooted below the given tally scope
func NewMetrics(scope tally.Scope) *Metrics {
	taskScope := scope.SubScope("task")
	committedScope := taskScope.Tagged(map[string]string{"outcome": "committed"})
	rejectedScope := taskScope.Tagged(map[string]string{"outcome": "rejected"})

	return &Metrics{
		Running:        scope.Gauge("running"),
		TasksCommitted: committedScope.Counter("outcome"),
		TasksRejected:  rejectedScope.Counter("outcome"),
		ServerAttempts: scope.Counter("server_attempts"),
		SocialWelfare:  scope.Gauge("social_welfare"),
		RunDuration:    scope.Timer("run_duration"),
	}
}
