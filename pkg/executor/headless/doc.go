// Package headless runs a single browse Session from a terminal.
//
// The executor starts a Session, renders its Updates to the console and
// reads commands from an input stream while the agent works:
//
//   - /pause and /resume suspend and continue the agent
//   - /quit cancels the run
//   - y or n answers a pending product proposal
//   - any other line is passed to the agent as guidance
//
// Product proposals are answered according to the feedback policy: "ask"
// waits for the user, "accept" and "decline" answer immediately. Look
// requests are answered with a screenshot of the live page.
//
// When the Session ends the executor writes artifacts:
//
//   - summary.json: the full Session result
//   - report.md: the final response, findings and accepted products
//   - comparison.md: a comparison table when more than one product was accepted
//
// Example usage:
//
//	cfg := headless.DefaultConfig()
//	cfg.Goal = "find a stainless steel kettle under $40"
//
//	exec, _ := headless.NewExecutor(runner, page, cfg)
//	result, err := exec.Run(ctx)
package headless
