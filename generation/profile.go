package generation

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"

	"github.com/stringtheorys/Flexible-Cloud-Resource/config"
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
)

// Moments are the mean and standard deviation of one generated field.
type Moments struct {
	Mean float64 `yaml:"mean" validate:"min=0"`
	Std  float64 `yaml:"std" validate:"min=0"`
}

func (m Moments) distribution() Distribution {
	return NewGaussian(m.Mean, m.Std)
}

// TaskProfile is one weighted family of generated tasks.
type TaskProfile struct {
	Name        string  `yaml:"name" validate:"nonzero"`
	Probability float64 `yaml:"probability" validate:"min=0"`

	RequiredStorage     Moments `yaml:"required_storage"`
	RequiredComputation Moments `yaml:"required_computation"`
	RequiredResultsData Moments `yaml:"required_results_data"`
	Deadline            Moments `yaml:"deadline"`
	Value               Moments `yaml:"value"`
}

// ServerProfile is one weighted family of generated servers.
type ServerProfile struct {
	Name        string  `yaml:"name" validate:"nonzero"`
	Probability float64 `yaml:"probability" validate:"min=0"`

	Storage     Moments `yaml:"storage"`
	Computation Moments `yaml:"computation"`
	Bandwidth   Moments `yaml:"bandwidth"`
}

// Profile is a named synthetic population built from weighted task and
// server families.
type Profile struct {
	Name    string          `yaml:"name" validate:"nonzero"`
	Tasks   []TaskProfile   `yaml:"tasks" validate:"nonzero"`
	Servers []ServerProfile `yaml:"servers" validate:"nonzero"`
}

// LoadProfile reads and validates a model profile, merging the given files
// in order.
func LoadProfile(files ...string) (*Profile, error) {
	profile := &Profile{}
	if err := config.Parse(profile, files...); err != nil {
		return nil, errors.Wrap(err, "loading the model profile")
	}
	return profile, nil
}

// pick returns the index chosen by one draw against the cumulative weights,
// falling back to the last entry when the weights sum below one.
func pick(random *rand.Rand, weights []float64) int {
	prob := random.Float64()
	for i, weight := range weights {
		if prob < weight {
			return i
		}
		prob -= weight
	}
	return len(weights) - 1
}

// Generate draws a population of tasks and servers from the weighted
// families, named <family>-<position>.
func (p *Profile) Generate(random *rand.Rand, numTasks, numServers int) ([]*model.Task, []*model.Server, error) {
	taskWeights := make([]float64, len(p.Tasks))
	for i, family := range p.Tasks {
		taskWeights[i] = family.Probability
	}
	tasks := make([]*model.Task, 0, numTasks)
	for pos := 0; pos < numTasks; pos++ {
		family := p.Tasks[pick(random, taskWeights)]
		task, err := model.NewTask(
			fmt.Sprintf("%s-%d", family.Name, pos),
			family.RequiredStorage.distribution().Value(random),
			family.RequiredComputation.distribution().Value(random),
			family.RequiredResultsData.distribution().Value(random),
			family.Deadline.distribution().Value(random),
			family.Value.distribution().Value(random),
		)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "generating task %d of family %q", pos, family.Name)
		}
		tasks = append(tasks, task)
	}

	serverWeights := make([]float64, len(p.Servers))
	for i, family := range p.Servers {
		serverWeights[i] = family.Probability
	}
	servers := make([]*model.Server, 0, numServers)
	for pos := 0; pos < numServers; pos++ {
		family := p.Servers[pick(random, serverWeights)]
		server, err := model.NewServer(
			fmt.Sprintf("%s-%d", family.Name, pos),
			family.Storage.distribution().Value(random),
			family.Computation.distribution().Value(random),
			family.Bandwidth.distribution().Value(random),
		)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "generating server %d of family %q", pos, family.Name)
		}
		servers = append(servers, server)
	}
	return tasks, servers, nil
}
