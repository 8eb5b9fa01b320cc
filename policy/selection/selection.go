package selection

import (
	"math/rand"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
)

const (
	// SumResources is the name of the available resource sum policy.
	SumResources = "SUM_RESOURCES"

	// ProductResources is the name of the available resource product
	// policy.
	ProductResources = "PRODUCT_RESOURCES"

	// TaskSumResources is the name of the planned footprint policy.
	TaskSumResources = "TASK_SUM_RESOURCES"

	// Random is the name of the random order policy.
	Random = "RANDOM"
)

// Policy scores how attractive a server is as a home for an incoming
// task. Servers unable to run the task at all are filtered before the
// policy is consulted.
type Policy interface {
	// Name returns the name of the policy implementation.
	Name() string
	// Score rates the server for the task.
	Score(task *model.Task, server *model.Server) float64
	// Maximise reports whether higher scores rank earlier.
	Maximise() bool
}

// Rank returns the servers able to run the task, ordered best candidate
// first under the policy. Servers scoring equal keep their input order,
// so callers feeding a fixed server order get a deterministic ranking.
func Rank(policy Policy, task *model.Task, servers []*model.Server) []*model.Server {
	candidates := make([]*model.Server, 0, len(servers))
	scores := make(map[*model.Server]float64, len(servers))
	for _, server := range servers {
		if server.CanRun(task) {
			candidates = append(candidates, server)
			scores[server] = policy.Score(task, server)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if policy.Maximise() {
			return scores[candidates[i]] > scores[candidates[j]]
		}
		return scores[candidates[i]] < scores[candidates[j]]
	})
	return candidates
}

// map of policy name to Policy. Not thread-safe -> should be updated
// at initialization only; only reads are safe after initialization.
var policies = make(map[string]Policy)

// register creates a policy and keeps it in the policy map.
func register(name string, policyFunc func() Policy) {
	log.WithField("name", name).Info("Registering server selection policy")
	if policyFunc == nil {
		log.WithField("name", name).Error("invalid policy creator function")
		return
	}
	if _, registered := policies[name]; registered {
		log.WithField("name", name).Error("policy already registered")
		return
	}
	policy := policyFunc()
	if policy == nil {
		log.WithField("name", name).Error("nil policy created")
		return
	}
	policies[name] = policy
}

// Init registers all the policies
func Init() {
	register(SumResources, NewSumResources)
	register(ProductResources, NewProductResources)
	register(TaskSumResources, func() Policy {
		return NewTaskSumResources(allocation.NewSumPercentage())
	})
	register(Random, func() Policy {
		return NewRandom(rand.New(rand.NewSource(time.Now().UnixNano())))
	})
}

// GetPolicyByName returns a policy with specified name
func GetPolicyByName(name string) Policy {
	return policies[name]
}

// GetPolicies returns all registered policies ordered by name
func GetPolicies() []Policy {
	result := make([]Policy, 0, len(policies))
	for _, p := range policies {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}
