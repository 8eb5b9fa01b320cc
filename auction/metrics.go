package auction

import (
	"github.com/uber-go/tally"
)

// Metrics contains all the metrics relevant to an iterative auction run
type Metrics struct {
	// Running indicates if an auction run is currently in flight
	Running tally.Gauge

	// Rounds counts the bidding rounds, one per task drawn from the queue
	Rounds tally.Counter
	// Quotes counts the price quotes servers were asked to produce
	Quotes tally.Counter
	// Evictions counts the resident tasks bumped back into the bidding
	// queue by a task the server preferred
	Evictions tally.Counter

	// TasksCommitted counts the tasks that ended a run committed to a server
	TasksCommitted tally.Counter
	// TasksRejected counts the tasks priced out of every server
	TasksRejected tally.Counter

	// TotalRevenue reports the summed resident prices over all servers at
	// the end of the last run
	TotalRevenue tally.Gauge
	// SocialWelfare reports the summed value of the committed deadline
	// feasible tasks of the last run
	SocialWelfare tally.Gauge

	// RunDuration times one whole auction run
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
		Rounds:         scope.Counter("rounds"),
		Quotes:         scope.Counter("quotes"),
		Evictions:      scope.Counter("evictions"),
		TasksCommitted: committedScope.Counter("outcome"),
		TasksRejected:  rejectedScope.Counter("outcome"),
		TotalRevenue:   scope.Gauge("total_revenue"),
		SocialWelfare:  scope.Gauge("social_welfare"),
		RunDuration:    scope.Timer("run_duration"),
	}
}
