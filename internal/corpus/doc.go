// Package corpus handles the candidate side of a conversion: finding score
// files under a corpus root, narrowing them by metadata, and reading and
// writing the list files that hand candidates to the convert command and
// converted outputs to whatever consumes them next.
package corpus
