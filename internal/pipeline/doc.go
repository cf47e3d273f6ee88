// Package pipeline runs the convergence loop: plan the outstanding batch,
// run the converter over it once, blame the input named in the
// diagnostics of an abnormal exit, exclude it, and plan again until
// nothing is outstanding or no further progress can be made.
//
// Each round ends in one of the transitions below. A "pending stall" is
// confirmed at the next planning step only if the batch did not shrink;
// any shrink counts as forward progress whatever the exit status was.
//
//	clean exit                      -> pending stall (no progress)
//	abnormal exit, new culprit      -> exclude, continue
//	abnormal exit, unscheduled      -> exclude, pending stall (outside batch)
//	abnormal exit, known culprit    -> pending stall (repeated attribution)
//	abnormal exit, no match         -> pending stall (unattributable)
//	cancelled                       -> Cancelled, round discarded
//
// Storage failures (planning, job file, checkpoint) are returned as
// errors and end the run immediately with the Failed state.
//
// The pending stall and the batch size it was raised at are checkpointed
// with the round, so a resumed run confirms or clears it without running
// another round first.
package pipeline
