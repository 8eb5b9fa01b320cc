package auction

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"
	"go.uber.org/atomic"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
	"github.com/stringtheorys/Flexible-Cloud-Resource/scalar"
)

// Auction runs the decentralised iterative auction. Tasks bid in random
// order, every server quotes a price for taking the bidder in, and the
// cheapest quote wins when the bidder can afford it. A server quotes by
// repacking itself around the bidder, so committed tasks can be evicted
// back into the bidding queue by a bidder the server prefers; each
// successful bid raises the price of the contested resources by at
// least the server's price change, which bounds the rounds.
type Auction struct {
	density    PriceDensity
	allocation allocation.Policy
	rnd        *rand.Rand
	metrics    *Metrics
	running    *atomic.Bool
}

// quote is the outcome of one server repacking itself around a bidder:
// the price demanded, the planned speeds for the bidder and every
// retained resident, and the residents that lose their place.
type quote struct {
	server  *model.Server
	price   float64
	plan    []model.SpeedAssignment
	evicted []*model.Task
}

// allocationSnapshot holds the task side of an allocation so a quote
// can be rolled back.
type allocationSnapshot struct {
	loading float64
	compute float64
	sending float64
	state   model.AllocationState
}

// NewAuction creates an auction from its price density and resource
// allocation policy. The random source drives the bidding order and
// must not be shared with other users.
func NewAuction(density PriceDensity, allocationPolicy allocation.Policy,
	rnd *rand.Rand, parent tally.Scope) (*Auction, error) {
	if density == nil || allocationPolicy == nil || rnd == nil {
		return nil, errors.New("auction needs a price density, a resource allocation policy and a random source")
	}
	return &Auction{
		density:    density,
		allocation: allocationPolicy,
		rnd:        rnd,
		metrics:    NewMetrics(parent.SubScope("auction")),
		running:    atomic.NewBool(false),
	}, nil
}

// Name identifies the auction by its policy pair.
func (a *Auction) Name() string {
	return fmt.Sprintf("DIA(%s, %s)", a.density.Name(), a.allocation.Name())
}

// Run performs one auction. The model must be clean of any previous
// run; tasks priced out of every server end Rejected, which is an
// outcome and not an error. When the context expires mid-auction the
// tasks still queued are rejected and the result reflects the prices
// reached so far.
func (a *Auction) Run(ctx context.Context, tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
	if !a.running.CompareAndSwap(false, true) {
		return nil, errors.New("auction run already in progress")
	}
	defer a.running.Store(false)

	if err := model.CheckClean(tasks, servers); err != nil {
		return nil, errors.Wrap(err, "an auction requires a reset model")
	}

	a.metrics.Running.Update(1)
	defer a.metrics.Running.Update(0)

	start := time.Now()
	queue := make([]*model.Task, len(tasks))
	copy(queue, tasks)

	rounds := 0
	for len(queue) > 0 {
		if ctx.Err() != nil {
			log.WithFields(log.Fields{
				"algorithm": a.Name(),
				"queued":    len(queue),
				"rounds":    rounds,
			}).Warn("auction interrupted, rejecting queued tasks")
			for _, task := range queue {
				task.SetState(model.Rejected)
			}
			break
		}

		task := a.pop(&queue)
		rounds++
		a.metrics.Rounds.Inc(1)

		winner := a.cheapestQuote(task, servers)
		if winner == nil {
			task.SetState(model.Rejected)
			log.WithField("task", task.Name).Debug("no server can quote for task")
			continue
		}
		if winner.price > task.Value+scalar.Epsilon {
			task.SetState(model.Rejected)
			log.WithFields(log.Fields{
				"task":  task.Name,
				"price": winner.price,
				"value": task.Value,
			}).Debug("task priced out of the auction")
			continue
		}
		if err := a.settle(task, winner, &queue); err != nil {
			return nil, errors.Wrapf(err, "settling task %q on server %q", task.Name, winner.server.Name)
		}
	}

	elapsed := time.Since(start)
	result := model.NewResult(a.Name(), tasks, servers, elapsed, false)
	result.Rounds = rounds
	for _, server := range servers {
		result.TotalRevenue += server.Revenue()
	}

	committed, rejected := 0, 0
	for _, task := range tasks {
		switch task.State() {
		case model.Committed:
			committed++
		case model.Rejected:
			rejected++
		}
	}

	a.metrics.TasksCommitted.Inc(int64(committed))
	a.metrics.TasksRejected.Inc(int64(rejected))
	a.metrics.TotalRevenue.Update(result.TotalRevenue)
	a.metrics.SocialWelfare.Update(result.SocialWelfare)
	a.metrics.RunDuration.Record(elapsed)

	log.WithFields(log.Fields{
		"algorithm":      a.Name(),
		"tasks":          len(tasks),
		"committed":      committed,
		"rejected":       rejected,
		"rounds":         rounds,
		"social_welfare": result.SocialWelfare,
		"total_revenue":  result.TotalRevenue,
		"duration":       elapsed,
	}).Info("auction finished")
	return result, nil
}

// pop removes a uniformly random task from the bidding queue.
func (a *Auction) pop(queue *[]*model.Task) *model.Task {
	q := *queue
	i := a.rnd.Intn(len(q))
	task := q[i]
	q[i] = q[len(q)-1]
	*queue = q[:len(q)-1]
	return task
}

// cheapestQuote asks every server for a price and keeps the cheapest,
// earlier servers winning ties. Returns nil when no server can repack
// itself around the task at all.
func (a *Auction) cheapestQuote(task *model.Task, servers []*model.Server) *quote {
	var best *quote
	for _, server := range servers {
		a.metrics.Quotes.Inc(1)
		q, ok := a.priceTaskOn(task, server)
		if !ok {
			continue
		}
		if best == nil || q.price < best.price {
			best = q
		}
	}
	return best
}

// priceTaskOn repacks the server around the bidding task to find the
// price the server demands for taking it: the revenue of the residents
// that lose their place plus the price change margin, floored at the
// initial price. The server and its residents are restored to their
// pre-quote state before returning, whatever the outcome.
func (a *Auction) priceTaskOn(task *model.Task, server *model.Server) (*quote, bool) {
	residents := server.Tasks()
	revenue := server.Revenue()
	snapshot := make(map[*model.Task]allocationSnapshot, len(residents))
	for _, resident := range residents {
		snapshot[resident] = allocationSnapshot{
			loading: resident.LoadingSpeed(),
			compute: resident.ComputeSpeed(),
			sending: resident.SendingSpeed(),
			state:   resident.State(),
		}
		resident.ResetAllocation(false)
	}
	server.ResetAllocations()

	defer func() {
		for _, t := range server.Tasks() {
			t.ResetAllocation(false)
		}
		server.ResetAllocations()
		task.ResetAllocation(false)
		for _, resident := range residents {
			s := snapshot[resident]
			if err := model.Allocate(resident, s.loading, s.compute, s.sending, server); err != nil {
				log.WithFields(log.Fields{
					"task":   resident.Name,
					"server": server.Name,
				}).WithError(err).Error("failed to restore a resident after quoting")
				continue
			}
			resident.SetState(s.state)
		}
	}()

	// The bidder is planned on the emptied server first, then the old
	// residents rejoin richest first, so the cheapest set of residents
	// is pushed out.
	plan, ok := a.allocation.Plan(task, server)
	if !ok {
		return nil, false
	}
	if err := server.Commit(task, plan); err != nil {
		log.WithFields(log.Fields{
			"task":   task.Name,
			"server": server.Name,
		}).WithError(err).Warn("planned speeds failed to commit while quoting")
		return nil, false
	}
	for _, resident := range a.orderByDensity(residents) {
		if !server.CanRun(resident) {
			continue
		}
		plan, ok := a.allocation.Plan(resident, server)
		if !ok {
			continue
		}
		if err := server.Commit(resident, plan); err != nil {
			log.WithFields(log.Fields{
				"task":   resident.Name,
				"server": server.Name,
			}).WithError(err).Warn("planned speeds failed to commit while quoting")
			continue
		}
	}

	// The bidder carries no price yet, so the server revenue after the
	// repack is exactly the revenue of the retained residents.
	price := revenue - server.Revenue() + server.PriceChange
	if price < server.InitialPrice {
		price = server.InitialPrice
	}

	q := &quote{server: server, price: price}
	for _, t := range server.Tasks() {
		q.plan = append(q.plan, model.SpeedAssignment{
			Task:    t,
			Loading: t.LoadingSpeed(),
			Compute: t.ComputeSpeed(),
			Sending: t.SendingSpeed(),
		})
	}
	for _, resident := range residents {
		if !resident.Allocated() {
			q.evicted = append(q.evicted, resident)
		}
	}
	return q, true
}

// orderByDensity returns the residents in descending price density
// order, equal densities keeping their input order.
func (a *Auction) orderByDensity(residents []*model.Task) []*model.Task {
	scores := make(map[*model.Task]float64, len(residents))
	for _, resident := range residents {
		scores[resident] = a.density.Evaluate(resident)
	}
	ordered := make([]*model.Task, len(residents))
	copy(ordered, residents)
	sort.SliceStable(ordered, func(i, j int) bool {
		return scores[ordered[i]] > scores[ordered[j]]
	})
	return ordered
}

// settle applies a winning quote: the server is emptied, the planned
// speeds are bound, and the evicted residents re-enter the bidding
// queue with their prices cleared.
func (a *Auction) settle(task *model.Task, win *quote, queue *[]*model.Task) error {
	for _, resident := range win.server.Tasks() {
		resident.ResetAllocation(false)
	}
	win.server.ResetAllocations()

	task.SetPrice(win.price)
	for _, row := range win.plan {
		if err := model.Allocate(row.Task, row.Loading, row.Compute, row.Sending, win.server); err != nil {
			return err
		}
		row.Task.SetState(model.Committed)
	}
	for _, evicted := range win.evicted {
		evicted.ResetAllocation(true)
		*queue = append(*queue, evicted)
		a.metrics.Evictions.Inc(1)
		log.WithFields(log.Fields{
			"task":   evicted.Name,
			"server": win.server.Name,
			"winner": task.Name,
		}).Debug("resident task evicted back into the bidding queue")
	}
	log.WithFields(log.Fields{
		"task":   task.Name,
		"server": win.server.Name,
		"price":  win.price,
	}).Debug("task committed at the quoted price")
	return nil
}
