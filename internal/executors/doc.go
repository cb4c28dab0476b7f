// Package executors launches coding-agent CLIs behind one uniform contract.
//
// Each supported CLI (claude, codex, gemini, opencode) has a concrete
// Executor that knows how to build its invocation, resume its sessions and
// normalize its raw output into tool-agnostic entries in a message store.
//
// The Multiplexer presents the same contract while dispatching to one of the
// underlying CLIs selected by a client discriminator, overriding their base
// command and managing the shared credential file under ~/.jbai.
//
// Spawning is non-blocking: Spawn returns a live SpawnedChild handle as soon
// as the process has started. There is no retry logic at this layer; every
// failure is surfaced to the caller.
package executors
