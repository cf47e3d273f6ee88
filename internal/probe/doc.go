// Package probe inspects converted MusicXML documents so unusable scores
// can be dropped from the confirmed-converted list.
//
// Both MusicXML layouts are understood: score-partwise (parts contain
// measures) and score-timewise (measures contain parts). Only structure is
// read; notes and attributes are skipped.
package probe
