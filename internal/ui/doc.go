// Package ui implements the vinyl player's terminal interface using bubbletea's Elm architecture.
//
// The screen is built from pure render functions over a [playback.Snapshot]:
//   - [RenderDisc] : the spinning record with its cover label and tonearm
//   - [RenderControls] : progress bar, time labels, transport, volume and spin speed
//   - [RenderRow] : one playlist row with its favorite marker
//
// The [Model] forwards key presses to the controller as intents and re-renders
// whenever a state or notice arrives on the notification channel. Adding a URL
// runs the intake filter chain first; only accepted input reaches the controller.
package ui
