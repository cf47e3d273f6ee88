// Package mscore drives the external score converter: it writes the batch
// job description, builds the command line, runs one converter process per
// round and attributes an abnormal exit to the input named in the
// converter's diagnostics.
//
// The converter reports no per-item status. A round either exits cleanly or
// it does not, and the only clue to which input was responsible is
// free-form stderr text. Attribution therefore relies on a configured
// path pattern, and the last path printed before the abort is taken as the
// culprit.
package mscore
