// Package interpretation turns blood and urine lab readings into graded
// findings. Evaluators map single analytes to fragments, the Aggregator folds
// them into a panel summary, and the detector emits named conditions from
// the raw readings. Everything here is pure and safe for concurrent use.
package interpretation
