package config

import (
	"time"

	"github.com/stringtheorys/Flexible-Cloud-Resource/metrics"
	"github.com/stringtheorys/Flexible-Cloud-Resource/solver"
)

// Config holds all configuration necessary to run the allocation harness.
type Config struct {
	Metrics metrics.Config `yaml:"metrics"`
	Model   ModelConfig    `yaml:"model"`

	Greedy  solver.GreedyConfig  `yaml:"greedy"`
	Auction solver.AuctionConfig `yaml:"auction"`

	// Solvers are the registry names to run, each against a fresh model.
	Solvers []string `yaml:"solvers" validate:"nonzero"`

	// TimeLimit bounds a single solve; zero means no bound.
	TimeLimit time.Duration `yaml:"time_limit" validate:"min=0"`

	// Results is the path the run results are appended to.
	Results string `yaml:"results"`

	// HTTPPort serves the metrics and health endpoints while the harness
	// runs; zero disables the server.
	HTTPPort int `yaml:"http_port" validate:"min=0"`
}

// ModelConfig names the model profile and the population drawn from it.
type ModelConfig struct {
	// Profile is the path of the model profile file.
	Profile    string `yaml:"profile" validate:"nonzero"`
	NumTasks   int    `yaml:"num_tasks" validate:"min=1"`
	NumServers int    `yaml:"num_servers" validate:"min=1"`
	// Repeats is how many fresh populations each solver runs against.
	Repeats int `yaml:"repeats" validate:"min=1"`
}
