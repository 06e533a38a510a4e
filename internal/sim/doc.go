// Package sim provides the agent-based simulation core: models, agents, step
// functions, and the single-run driver.
//
// A [Model] holds a set of agents in activation order, model-level
// properties, and its own seeded RNG so that runs are reproducible and
// independent of any global randomness. One run advances a model through a
// fixed number of steps, calling the agent step function for every agent and
// then the model step function, and collects observations into two tables:
//
//   - the agent table, one row per agent per collection step
//   - the model table, one row per collection step
//
// Which observations are collected, and how often, is configured through
// [RunOptions]. The ensemble driver in internal/ensemble invokes [Run] once
// per ensemble member.
package sim
