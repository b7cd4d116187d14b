package supervisor

// Package supervisor implements the supervised startup of the zone
// services.
//
// Runner is a thin wrapper around os/exec:
//   - starts the service in a dedicated process group
//   - waits in a goroutine and delivers one terminal Result
//   - kills the exact group it spawned, at most once
//
// Supervisor owns the readiness loop. It polls a probe.Probe on a
// fixed interval with a bounded number of attempts and resolves into
// exactly one Outcome:
//
//	[starting] --(probe: ready)--------------------> [ready]
//	[starting] --(probe: not-ready, interval)------> [starting]
//	[starting] --(probe: failed / attempts spent)--> [failed]
//	[starting] --(probe: denied)-------------------> [failed, no kill]
//
// The failed transition kills the process tree through the Terminator
// before the outcome is published, so the enclosing container observes
// the failure instead of hanging. A denied probe is the exception: the
// rejection proves the service is alive, it is left running. The outcome channel is one-shot and
// closed afterwards; the caller joins on it before process exit.
//
// Data flow:
//
//	caller                  Supervisor             Runner{cmd}
//	  |                        |                      |
//	  | Start(cmd) ------------------------------->   | exec.Start, Wait goroutine
//	  | Await(ctx) ----------->| probe loop           |
//	  |                        | ...                  |
//	  |<----- Outcome ---------| (Terminate on fail)->| kill -pgid
//
// Invariants:
//   - At most one process per Runner, at most one loop per Supervisor.
//   - Probes are sequential, none is issued after a terminal state.
//   - The process group is terminated at most once.
