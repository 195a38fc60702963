// Package ui renders spinlist's terminal output with lipgloss styles.
//
// Renderers return strings so commands decide where output goes:
//  1. [RenderSummary] : per-task results of a run with totals
//  2. [RenderPipelines] : configured pipelines with their step trees
//  3. [RenderCacheEntries] : rows of the track cache
//
// Colors come from a shared [Palette]. Without a color-capable terminal lipgloss drops the escape codes
// and the output stays plain text.
package ui
