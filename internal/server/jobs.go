package server

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/copyleftdev/tspga/internal/errors"
	"github.com/copyleftdev/tspga/internal/logging"
	"github.com/copyleftdev/tspga/internal/metrics"
	"github.com/copyleftdev/tspga/internal/optimization"
	"github.com/copyleftdev/tspga/internal/optimization/distance"
	"github.com/copyleftdev/tspga/internal/optimization/genetic"
	"github.com/copyleftdev/tspga/internal/report"
)

var (
	// ErrJobNotFound is returned for an unknown job id.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobFinished is returned when cancelling a job that already ended.
	ErrJobFinished = errors.New("job already finished")
	// ErrInvalidRequest marks malformed solve parameters.
	ErrInvalidRequest = errors.New("invalid request")
)

// SolveRequest describes one instance to solve. Zero-valued settings fall
// back to the server's GA defaults.
type SolveRequest struct {
	Name           string      `json:"name,omitempty"`
	Points         [][]float64 `json:"points"`
	PopulationSize *int        `json:"population_size,omitempty"`
	MaxGenerations *int        `json:"max_generations,omitempty"`
	CrossoverRate  *float64    `json:"crossover_rate,omitempty"`
	MutationRate   *float64    `json:"mutation_rate,omitempty"`
	CrossoverMode  string      `json:"crossover_mode,omitempty"`
	TournamentSize *int        `json:"tournament_size,omitempty"`
	Seed           *int64      `json:"seed,omitempty"`
}

func (r SolveRequest) optimizerConfig(defaults optimization.OptimizerConfig) (optimization.OptimizerConfig, error) {
	cfg := defaults
	if r.PopulationSize != nil {
		cfg.PopulationSize = *r.PopulationSize
	}
	if r.MaxGenerations != nil {
		cfg.MaxGenerations = *r.MaxGenerations
	}
	if r.CrossoverRate != nil {
		cfg.CrossoverRate = *r.CrossoverRate
	}
	if r.MutationRate != nil {
		cfg.MutationRate = *r.MutationRate
	}
	if r.TournamentSize != nil {
		cfg.TournamentSize = *r.TournamentSize
	}
	if r.Seed != nil {
		cfg.RandomSeed = *r.Seed
	}
	if r.CrossoverMode != "" {
		mode, err := optimization.ParseCrossoverMode(r.CrossoverMode)
		if err != nil {
			return cfg, err
		}
		cfg.CrossoverMode = mode
	}
	return cfg, nil
}

func (r SolveRequest) points() ([]distance.Point, error) {
	if len(r.Points) == 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "points are required")
	}
	points := make([]distance.Point, len(r.Points))
	for i, p := range r.Points {
		if len(p) != 2 {
			return nil, errors.Wrapf(ErrInvalidRequest, "point %d must be [x, y], got %d values", i, len(p))
		}
		points[i] = distance.Point{X: p[0], Y: p[1]}
	}
	return points, nil
}

// JobState represents the state of a solver job. All fields are guarded by
// Server.jobsMu.
type JobState struct {
	ID           string
	Name         string
	Status       optimization.Status
	StartTime    time.Time
	EndTime      *time.Time
	Progress     float64
	Generation   int
	BestSolution *optimization.Solution
	History      []optimization.Evaluation
	Config       optimization.OptimizerConfig
	Error        string
	ReportPath   string
	LastUpdated  time.Time

	matrix    *distance.Matrix
	optimizer optimization.Optimizer
	cancel    context.CancelFunc
}

// startJob validates req, registers a pending job and starts it in the
// background. Settings are checked here so bad requests fail synchronously.
func (s *Server) startJob(req SolveRequest) (map[string]interface{}, error) {
	cfg, err := req.optimizerConfig(s.defaults)
	if err != nil {
		return nil, err
	}
	points, err := req.points()
	if err != nil {
		return nil, err
	}
	matrix, err := distance.NewMatrix(points)
	if err != nil {
		return nil, err
	}
	optimizer, err := genetic.NewOptimizer(matrix, cfg)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	name := req.Name
	if name == "" {
		name = id
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	state := &JobState{
		ID:          id,
		Name:        name,
		Status:      optimization.StatusPending,
		StartTime:   now,
		LastUpdated: now,
		Config:      optimizer.Config(),
		matrix:      matrix,
		optimizer:   optimizer,
		cancel:      cancel,
	}

	jobLogger := s.logger.WithFields(map[string]interface{}{"job_id": id})
	optimizer.WithLogger(logging.NewZapLogger(jobLogger)).WithProgress(s.progressFor(state))

	s.jobsMu.Lock()
	s.pruneFinishedLocked(now)
	s.jobs[id] = state
	s.jobsMu.Unlock()

	s.logger.Info("Job submitted", map[string]interface{}{
		"job_id":          id,
		"points":          len(points),
		"population_size": cfg.PopulationSize,
		"max_generations": cfg.MaxGenerations,
		"crossover_mode":  cfg.CrossoverMode.String(),
	})

	s.wg.Add(1)
	go s.runJob(ctx, state)

	return map[string]interface{}{
		"job_id": id,
		"status": optimization.StatusPending,
	}, nil
}

// progressFor copies each generation's statistics into the job state.
func (s *Server) progressFor(state *JobState) optimization.ProgressFunc {
	mode := state.Config.CrossoverMode.String()
	total := state.Config.MaxGenerations

	return func(eval optimization.Evaluation, best *optimization.Solution) {
		s.jobsMu.Lock()
		state.Generation = eval.Generation
		state.History = append(state.History, eval)
		state.BestSolution = best
		if total > 0 {
			state.Progress = float64(eval.Generation) / float64(total)
		} else {
			state.Progress = 1
		}
		state.LastUpdated = time.Now()
		s.jobsMu.Unlock()

		metrics.GenerationEvaluated(state.ID, mode, best.Value)
	}
}

// runJob waits for a free slot and then evolves the job to completion,
// cancellation or failure.
func (s *Server) runJob(ctx context.Context, state *JobState) {
	defer s.wg.Done()
	defer state.cancel()

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	case <-ctx.Done():
		s.finish(state, optimization.StatusCancelled, nil)
		return
	}

	s.jobsMu.Lock()
	if state.Status != optimization.StatusPending {
		s.jobsMu.Unlock()
		return
	}
	state.Status = optimization.StatusRunning
	state.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	mode := state.Config.CrossoverMode.String()
	metrics.RunStarted()
	start := time.Now()

	result, err := s.optimize(ctx, state)

	status := optimization.StatusCompleted
	switch {
	case err == nil:
	case ctx.Err() != nil:
		status = optimization.StatusCancelled
		err = nil
	default:
		status = optimization.StatusFailed
	}
	metrics.RunFinished(state.ID, mode, string(status), time.Since(start))

	if err != nil {
		fields := errors.Fields(err)
		fields["job_id"] = state.ID
		s.logger.Error("Job failed", fields)
	}

	if status == optimization.StatusCompleted {
		s.writeReport(state, result)
	}

	s.jobsMu.Lock()
	if result != nil {
		state.BestSolution = result.BestSolution
		state.History = result.History
		state.Generation = result.Generations
		state.Progress = 1
	}
	if err != nil {
		state.Error = err.Error()
	}
	s.jobsMu.Unlock()

	s.finish(state, status, err)
}

// optimize runs the job's optimizer, turning a panic (such as an index the
// distance table rejects) into an error.
func (s *Server) optimize(ctx context.Context, state *JobState) (result *optimization.OptimizationResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Recovered(rec)
			s.logger.Error("Recovered from panic in job", map[string]interface{}{
				"job_id": state.ID,
				"error":  err.Error(),
				"stack":  string(debug.Stack()),
			})
		}
	}()
	return state.optimizer.Optimize(ctx)
}

// writeReport stores the result file of a completed job under the
// configured report directory. Reporting is skipped when no directory is set.
func (s *Server) writeReport(state *JobState, result *optimization.OptimizationResult) {
	dir := s.cfg.Report.Dir
	if dir == "" || result == nil {
		return
	}

	path := filepath.Join(dir, state.ID+".txt")
	if err := report.WriteFile(path, report.New(state.Name, state.matrix, result)); err != nil {
		s.logger.Error("Failed to write job report", map[string]interface{}{
			"job_id": state.ID,
			"error":  err.Error(),
		})
		return
	}

	s.jobsMu.Lock()
	state.ReportPath = path
	s.jobsMu.Unlock()
}

// finish moves a job into a terminal state. A job already cancelled by the
// client stays cancelled.
func (s *Server) finish(state *JobState, status optimization.Status, err error) {
	s.jobsMu.Lock()
	if !state.Status.Terminal() {
		state.Status = status
	}
	final := state.Status
	now := time.Now()
	if state.EndTime == nil {
		state.EndTime = &now
	}
	state.LastUpdated = now
	s.pruneFinishedLocked(now)
	s.jobsMu.Unlock()

	fields := map[string]interface{}{
		"job_id": state.ID,
		"status": final,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	s.logger.Info("Job finished", fields)
}

// jobStatus returns the current state, progress, best tour and history of a
// job.
func (s *Server) jobStatus(id string) (map[string]interface{}, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, errors.Wrapf(ErrJobNotFound, "job %q", id)
	}

	response := map[string]interface{}{
		"job_id":          state.ID,
		"name":            state.Name,
		"status":          state.Status,
		"progress":        state.Progress,
		"generation":      state.Generation,
		"max_generations": state.Config.MaxGenerations,
		"start_time":      state.StartTime.Format(time.RFC3339),
		"last_update":     state.LastUpdated.Format(time.RFC3339),
		"config": map[string]interface{}{
			"population_size": state.Config.PopulationSize,
			"max_generations": state.Config.MaxGenerations,
			"crossover_rate":  state.Config.CrossoverRate,
			"mutation_rate":   state.Config.MutationRate,
			"crossover_mode":  state.Config.CrossoverMode.String(),
			"tournament_size": state.Config.TournamentSize,
			"seed":            state.Config.RandomSeed,
		},
	}

	if state.EndTime != nil {
		response["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Error != "" {
		response["error"] = state.Error
	}
	if state.ReportPath != "" {
		response["report"] = state.ReportPath
	}

	if state.BestSolution != nil {
		response["best_solution"] = map[string]interface{}{
			"tour":   state.BestSolution.Tour,
			"value":  state.BestSolution.Value,
			"points": state.matrix.Points(state.BestSolution.Tour),
		}
	}

	if len(state.History) > 0 {
		history := make([]map[string]interface{}, len(state.History))
		for i, eval := range state.History {
			history[i] = map[string]interface{}{
				"generation": eval.Generation,
				"best":       eval.Best,
				"average":    eval.Average,
				"worst":      eval.Worst,
			}
		}
		response["history"] = history
	}

	return response, nil
}

// cancelJob cancels a pending or running job. A running job stops at its
// next generation boundary.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return errors.Wrapf(ErrJobNotFound, "job %q", id)
	}
	if state.Status.Terminal() {
		return errors.Wrapf(ErrJobFinished, "job %q is %s", id, state.Status)
	}

	state.cancel()

	state.Status = optimization.StatusCancelled
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now

	s.logger.Info("Job cancelled", map[string]interface{}{
		"job_id": id,
	})
	return nil
}

// pruneFinishedLocked forgets finished jobs older than Jobs.Retention and,
// past Jobs.MaxRetained finished jobs, the ones that ended first. Pending and
// running jobs are never removed. A zero limit disables that check. The
// caller must hold jobsMu for writing.
func (s *Server) pruneFinishedLocked(now time.Time) {
	retention := s.cfg.Jobs.Retention
	maxRetained := s.cfg.Jobs.MaxRetained

	var finished []*JobState
	for id, state := range s.jobs {
		if !state.Status.Terminal() || state.EndTime == nil {
			continue
		}
		if retention > 0 && now.Sub(*state.EndTime) > retention {
			delete(s.jobs, id)
			continue
		}
		finished = append(finished, state)
	}

	if maxRetained <= 0 || len(finished) <= maxRetained {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].EndTime.Before(*finished[j].EndTime)
	})
	for _, state := range finished[:len(finished)-maxRetained] {
		delete(s.jobs, state.ID)
	}
}
