package valuedensity

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

const (
	// UtilityDeadlinePerResource is the name of the deadline weighted
	// utility density.
	UtilityDeadlinePerResource = "UTILITY_DEADLINE_PER_RESOURCE"

	// UtilityPerResources is the name of the utility per resource density.
	UtilityPerResources = "UTILITY_PER_RESOURCES"

	// ResourceSum is the name of the resource sum density.
	ResourceSum = "RESOURCE_SUM"

	// Value is the name of the raw value density.
	Value = "VALUE"
)

// Density scores a task for the ordering pass of a greedy allocator.
// Tasks are visited in descending score order, so a higher score means
// the task is served earlier while servers are still empty.
type Density interface {
	// Name returns the name of the density implementation.
	Name() string
	// Evaluate returns the priority score of the task.
	Evaluate(task *model.Task) float64
}

// map of density name to Density. Not thread-safe -> should be
// updated at initialization only; only reads are safe after
// initialization.
var densities = make(map[string]Density)

// register creates a density and keeps it in the density map.
func register(name string, densityFunc func() Density) {
	log.WithField("name", name).Info("Registering value density")
	if densityFunc == nil {
		log.WithField("name", name).Error("invalid density creator function")
		return
	}
	if _, registered := densities[name]; registered {
		log.WithField("name", name).Error("density already registered")
		return
	}
	density := densityFunc()
	if density == nil {
		log.WithField("name", name).Error("nil density created")
		return
	}
	densities[name] = density
}

// Init registers all the densities
func Init() {
	register(UtilityDeadlinePerResource, NewUtilityDeadlinePerResource)
	register(UtilityPerResources, NewUtilityPerResources)
	register(ResourceSum, NewResourceSum)
	register(Value, NewValue)
}

// GetDensityByName returns a density with specified name
func GetDensityByName(name string) Density {
	return densities[name]
}

// GetDensities returns all registered densities ordered by name
func GetDensities() []Density {
	result := make([]Density, 0, len(densities))
	for _, d := range densities {
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}
