// Package reminder runs the once-a-minute schedule check.
//
// Each tick evaluates the schedule at the current minute and produces a Plan:
// the notifications to emit (task started, task ending soon, upcoming task)
// and the badge to show. Evaluate is pure; Scheduler wires it to a cron
// entry, the session snapshot, the notifier and the badge sink.
//
// Ticks missed while the process was suspended are not replayed, and without
// a dedup window a block whose start is exactly one minute old is announced
// on two consecutive ticks.
package reminder
