package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/stringtheorys/Flexible-Cloud-Resource/config"
	"github.com/stringtheorys/Flexible-Cloud-Resource/generation"
	"github.com/stringtheorys/Flexible-Cloud-Resource/metrics"
	"github.com/stringtheorys/Flexible-Cloud-Resource/model"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/allocation"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/selection"
	"github.com/stringtheorys/Flexible-Cloud-Resource/policy/valuedensity"
	"github.com/stringtheorys/Flexible-Cloud-Resource/solver"
)

var (
	version string
	app     = kingpin.New("flexible-cloud", "Flexible cloud resource allocation harness")

	debug = app.Flag(
		"debug", "enable debug mode (print debug level logs)").
		Short('d').
		Default("false").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		Required().
		ExistingFiles()

	modelFile = app.Flag(
		"model-file", "model profile file (model.profile override)").
		Short('f').
		ExistingFile()

	numTasks = app.Flag(
		"tasks", "number of generated tasks (model.num_tasks override)").
		Short('t').
		Int()

	numServers = app.Flag(
		"servers", "number of generated servers (model.num_servers override)").
		Short('s').
		Int()

	repeats = app.Flag(
		"repeats", "number of fresh populations per solver (model.repeats override)").
		Short('r').
		Int()

	algorithms = app.Flag(
		"algorithm",
		"solver to run (can be provided multiple times, solvers override)").
		Strings()

	timeLimit = app.Flag(
		"time-limit", "per solve time budget in h/m/s (time_limit override)").
		String()
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(&log.JSONFormatter{})
	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	var cfg config.Config
	if err := config.Parse(&cfg, *cfgFiles...); err != nil {
		log.WithError(err).Fatal("Cannot parse the harness config")
	}

	// now, override any CLI flags in the loaded config
	if *modelFile != "" {
		cfg.Model.Profile = *modelFile
	}
	if *numTasks > 0 {
		cfg.Model.NumTasks = *numTasks
	}
	if *numServers > 0 {
		cfg.Model.NumServers = *numServers
	}
	if *repeats > 0 {
		cfg.Model.Repeats = *repeats
	}
	if len(*algorithms) > 0 {
		cfg.Solvers = *algorithms
	}
	if *timeLimit != "" {
		limit, err := time.ParseDuration(*timeLimit)
		if err != nil {
			log.WithError(err).
				WithField("time_limit", *timeLimit).
				Fatal("Cannot parse the time limit")
		}
		cfg.TimeLimit = limit
	}
	if cfg.Results == "" {
		cfg.Results = "results.json"
	}

	log.WithField("config", cfg).Info("Loaded harness configuration")

	rootScope, scopeCloser, mux := metrics.InitMetricScope(
		&cfg.Metrics,
		"flexible-cloud",
		metrics.TallyFlushInterval,
	)
	defer scopeCloser.Close()
	rootScope.Counter("boot").Inc(1)

	if cfg.HTTPPort > 0 {
		address := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.WithField("address", address).Info("Serving metrics and health endpoints")
		go func() {
			if err := http.ListenAndServe(address, mux); err != nil {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	valuedensity.Init()
	selection.Init()
	allocation.Init()
	if err := solver.Init(cfg.Greedy, cfg.Auction, rootScope); err != nil {
		log.WithError(err).Fatal("Cannot initialize the solvers")
	}

	profile, err := generation.LoadProfile(cfg.Model.Profile)
	if err != nil {
		log.WithError(err).
			WithField("profile", cfg.Model.Profile).
			Fatal("Cannot load the model profile")
	}

	random := rand.New(rand.NewSource(time.Now().UnixNano()))
	if err := run(&cfg, profile, random); err != nil {
		log.WithError(err).Fatal("Harness run failed")
	}
	log.WithField("results", cfg.Results).Info("Harness finished")
}

// run draws a fresh population per repeat, runs every configured solver
// against it and appends the results to the results file. The model is
// reset between solvers so each sees clean tasks and servers.
func run(cfg *config.Config, profile *generation.Profile, random *rand.Rand) error {
	results := make([]*model.Result, 0, cfg.Model.Repeats*len(cfg.Solvers))
	for repeat := 0; repeat < cfg.Model.Repeats; repeat++ {
		tasks, servers, err := profile.Generate(random, cfg.Model.NumTasks, cfg.Model.NumServers)
		if err != nil {
			return errors.Wrap(err, "generating the model population")
		}
		for _, server := range servers {
			if cfg.Auction.PriceChange > 0 {
				server.PriceChange = cfg.Auction.PriceChange
			}
			if cfg.Auction.InitialPrice > 0 {
				server.InitialPrice = cfg.Auction.InitialPrice
			}
		}

		for _, name := range cfg.Solvers {
			s := solver.GetSolverByName(name)
			if s == nil {
				return errors.Errorf("unknown solver %q", name)
			}
			result, err := solveOne(cfg.TimeLimit, s, tasks, servers)
			if err != nil {
				return errors.Wrapf(err, "running solver %q on repeat %d", name, repeat)
			}

			// The fixed greedy solver places derived fixed speed views, so
			// its result cannot be checked against the flexible tasks.
			if name != solver.FixedGreedy {
				solver.Verify(result, tasks, servers)
				if err := solver.ValidateSolution(tasks, servers); err != nil {
					log.WithError(err).
						WithField("algorithm", result.Algorithm).
						Error("Solution violates the model invariants")
				}
			}

			log.WithFields(log.Fields{
				"algorithm":      result.Algorithm,
				"solver":         name,
				"repeat":         repeat,
				"social_welfare": result.SocialWelfare,
				"committed":      result.TasksCommitted,
				"tasks":          result.TasksTotal,
				"solve_time":     result.SolveTime.String(),
			}).Info("Solver run finished")

			results = append(results, result)
			model.ResetModel(tasks, servers)
		}
	}
	return appendResults(cfg.Results, results)
}

func solveOne(limit time.Duration, s solver.Solver, tasks []*model.Task, servers []*model.Server) (*model.Result, error) {
	ctx := context.Background()
	if limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}
	return s.Solve(ctx, tasks, servers)
}

// appendResults merges the new results into the file's existing array so
// repeated harness invocations accumulate into one dataset.
func appendResults(path string, results []*model.Result) error {
	existing := make([]*model.Result, 0, len(results))
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &existing); err != nil {
			return errors.Wrapf(err, "results file %q holds unreadable content", path)
		}
	case !os.IsNotExist(err):
		return err
	}
	existing = append(existing, results...)

	out, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
