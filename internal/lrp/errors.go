package lrp

import "errors"

var (
	// ErrInputNotFound reports a scenario or solution file that does not exist.
	ErrInputNotFound = errors.New("input not found")
	// ErrInputMalformed reports a file that violates the expected schema.
	ErrInputMalformed = errors.New("input malformed")
	// ErrInfeasibleConfiguration reports a depot set whose capacity cannot cover a scenario's demand.
	ErrInfeasibleConfiguration = errors.New("infeasible configuration")
	// ErrSolverFailure reports a per-scenario routing solve that did not complete.
	ErrSolverFailure = errors.New("solver failure")
	// ErrNoFeasibleConfiguration is fatal: a stage ended without any valid candidate.
	ErrNoFeasibleConfiguration = errors.New("no feasible configuration")
	// ErrEmptyCatalog reports a run without candidate depot sites.
	ErrEmptyCatalog = errors.New("depot catalog is empty")
	// ErrNoScenarios reports a run without any usable scenario.
	ErrNoScenarios = errors.New("no scenarios loaded")
)
