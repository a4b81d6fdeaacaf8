// Package scheduler implements a cooperative, tick driven executor of suspendable tasks.
//
// A Task does a small amount of work per Resume call and reports either that it is
// still pending (with an advisory tock, the delay after which another resumption is
// meaningful) or that it is done. Tasks never block: waiting is expressed by returning
// Pending and being resumed again on a later tick.
//
// # Components
//
//   - Task: the unit of work, resumed once per tick.
//   - Func: adapts a step function into a Task and latches its completion.
//   - Composite: a Task owning an ordered set of child tasks that it resumes round robin,
//     one step per child per pass, with removal that is safe from inside the pass.
//   - Scheduler: the tick loop. It drives top-level tasks until they all complete or the
//     iteration limit is reached, advancing logical time by a fixed tick.
//
// All resumption happens on the goroutine that called Scheduler.Run. Tasks that need real
// I/O (see the readiness package) hand it to the background and harvest the result on a
// later Resume.
//
// # Time
//
// Resume receives the scheduler's logical time ("tyme"), which starts at zero and grows by
// one Tick per iteration regardless of wall clock. In Real mode the scheduler also sleeps
// for one Tick between iterations, so logical and wall time stay roughly aligned.
//
// The only timeout is the iteration limit: Limit x Tick. A task still pending when the
// limit expires is abandoned, not cancelled.
package scheduler
