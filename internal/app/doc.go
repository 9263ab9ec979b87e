// Package app renders download runs on a terminal: coloured log lines, an
// aggregate byte progress bar, dry run listings and the final summary.
package app
