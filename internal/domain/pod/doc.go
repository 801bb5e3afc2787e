// Package pod is the canonical print-on-demand model: the shared vocabulary
// for print specs, quotes, orders and statuses that every other component
// speaks. Provider adapters translate vendor contracts to and from these
// types so that nothing vendor-specific ever leaks upward.
package pod
