// Package analysis defines the data model shared by the pipeline: file
// change events, language-agnostic analysis results, the analyzer contract,
// and file fingerprinting. Values here are immutable once created; ownership
// passes between components, never shared mutation.
package analysis
