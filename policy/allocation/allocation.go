package allocation

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

const (
	// SumPercentage is the name of the linear percentage split policy.
	SumPercentage = "SUM_PERCENTAGE"

	// SumPowPercentage is the name of the power weighted percentage
	// split policy.
	SumPowPercentage = "SUM_POW_PERCENTAGE"
)

// Policy plans the stage speeds a server would run its tasks at if an
// incoming task joined it. Plans are pure: nothing is committed to the
// server until the caller applies the returned assignments.
type Policy interface {
	// Name returns the name of the policy implementation.
	Name() string
	// Plan returns one speed assignment for the incoming task and one
	// for every task already resident on the server, or false when no
	// split lets every task meet its deadline.
	Plan(task *model.Task, server *model.Server) ([]model.SpeedAssignment, bool)
}

// map of policy name to Policy. Not thread-safe -> should be updated
// at initialization only; only reads are safe after initialization.
var policies = make(map[string]Policy)

// register creates a policy and keeps it in the policy map.
func register(name string, policyFunc func() Policy) {
	log.WithField("name", name).Info("Registering resource allocation policy")
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
	register(SumPercentage, NewSumPercentage)
	register(SumPowPercentage, func() Policy {
		return NewSumPowPercentage(defaultPower)
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
