// Package agent provides the autonomous agent runtime: a Policy interface
// describing an agent's decision hooks and a Runner that drives the
// decide/act/evaluate/sleep loop against a shared blackboard.
//
// Every concrete agent is expressed purely as the four Policy hooks over a
// blackboard snapshot. The Runner owns everything else: registration, the
// loop goroutine, status transitions, local performance history and failure
// backoff. Agents never hold references to each other; all coordination goes
// through the board.
package agent
