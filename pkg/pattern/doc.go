// Package pattern runs multi-step haptic patterns on top of the command queue.
//
// A Pattern is an ordered list of command and pause steps, optionally
// repeated. The Executor enqueues one command step at a time and advances
// only when the queue reports that step's item as terminal, so the queue's
// completion feed is the clock: steps never overlap with each other or with
// unrelated commands, and a pattern repeated N times with S command steps
// produces exactly N*S queue items. Pause steps are timers and never touch
// the queue.
//
// Execution lifecycle (running, then exactly one of completed, failed,
// cancelled) is enforced by a statemachine.Definition. A failed step fails
// the whole execution; a cancelled step cancels it.
//
// Library holds named patterns, ships a few built-ins and loads more from YAML:
//
//	patterns:
//	  - name: ramp
//	    description: slow build up
//	    steps:
//	      - {kind: vibrate, intensity: 20, duration_ms: 300}
//	      - {pause: true, duration_ms: 100}
//	      - {kind: vibrate, intensity: 60, duration_ms: 300}
package pattern
