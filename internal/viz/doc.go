// Package viz renders runs in the terminal.
//
//   - [Canvas]: Braille pixel canvas, [Map] projects field coordinates onto it
//   - [Chart]: asciigraph line charts over controller series
//   - [Replay]: Bubble Tea viewer stepping through a finished run
//
// # Key Bindings
//
//	Space - Pause/Resume playback
//	R     - Restart from step zero
//	[ ]   - Step backward/forward while paused
//	+ -   - Change playback speed
//	Tab   - Cycle the charted series
//	Q     - Quit
package viz
