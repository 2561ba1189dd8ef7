// Package growth drives the budgeted recursive expansion loop. An
// Orchestrator repeatedly asks a CandidateSource for expansion proposals,
// filters them to the active budget gate's specialty, validates them
// through the guard chain, scans survivors for drift pathogens, scores
// quality, and consumes or refunds budget. The loop is phase-aware
// (seeding, elaboration, integration, saturation, termination) and
// terminates on budget exhaustion, stagnation, arbiter veto, or the
// caller's iteration cap, whichever comes first.
//
// Iterations are strictly sequential: gate selection and budget mutation
// depend on the previous iteration's outcome. The only suspension point is
// the CandidateSource call; a failing or cancelled call counts as a
// zero-candidate iteration, never a fatal error. Independent sessions may
// run concurrently since each owns its genome, gates, and state.
//
// Example usage:
//
//	orch, _ := growth.NewOrchestrator(&growth.OrchestratorConfig{
//	    Chain:   guard.NewChain(logger),
//	    Scanner: pathogen.NewScanner(library, logger),
//	})
//	result, err := orch.Run(ctx, g, source, 20)
package growth
