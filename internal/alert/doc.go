// Package alert runs the anomaly confirmation workflow.
//
// A positive anomaly verdict opens a Pending session and sends the responder
// a yes/no prompt. An affirmative reply confirms the alert and escalates to
// a voice call; "no" dismisses it; anything else re-prompts. Sessions time
// out to a call when configured. Replies are correlated to the sender's most
// recent Pending session; a newer anomaly supersedes an unresolved one so at
// most one session per responder is ever Pending.
package alert
