// Package command defines the intents the engine decides on and the shape of
// a decision: the drafts to persist or the rejections explaining why not.
//
// Commands are unvalidated. A controller, a script or a test builds them; only
// the game reducer decides whether they become events.
package command
