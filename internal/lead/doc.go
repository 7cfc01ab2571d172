// Package lead holds the lead domain: the Lead record, the score vector, the
// tagged Error type, and the Service that orchestrates analysis and
// persistence.
//
// AnalyzeAndCreateLead is a two-stage pipeline. The first stage calls the
// Analyzer and always produces an AnalysisOutcome, either Succeeded or Failed.
// The second stage consumes whichever outcome it got and inserts the lead, so
// valid input always yields a stored lead unless the Store itself fails.
package lead
