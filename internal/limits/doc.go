// Package limits provides the per-key gates applied around admission:
// a concurrent in-flight cap (PerKey) and a fixed-window requests-per-minute
// cap (Window). Both are independent of the shared admission queue and never
// reorder it.
package limits
