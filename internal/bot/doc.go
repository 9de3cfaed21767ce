// Package bot provides engine controllers that need no human: a naive
// heuristic player and a controller that replays a fixed script.
package bot
