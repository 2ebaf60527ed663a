// Package ui provides the terminal interface for easel.
//
// The UI is a Bubble Tea program. It renders state.Store snapshots on a
// fixed tick and sends every user action through the Actions interface,
// which the app session implements. Actions run as tea.Cmds off the event
// loop, and their outcome lands in the footer status line.
//
// # Views
//
//   - Jobs: newest-first job list with the selected job's detail below
//   - Saved: the persisted collection with notes
//   - Logs: a followable tail of the structured log file
//
// # Key Bindings
//
//   - i or /: write a prompt, enter submits, esc cancels
//   - a, [ and ]: cycle aspect ratio, lower or raise style strength
//   - R: toggle random style, y: adopt the selected job's parameters
//   - u or v then 1-4: upscale or vary a grid cell
//   - s: save or unsave the selected job
//   - n, d, r: edit notes, remove, reload (saved view)
//   - 1/2/3 or tab: switch views, T: cycle theme, ?: help, q: quit
//
// Parameter and theme changes are written to the prefs file immediately.
package ui
