// Package audit keeps an append-only record of privileged actions: who
// acted on whom, what they attempted, and whether policy allowed it.
package audit
