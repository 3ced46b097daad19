// Package collab defines the collaborators the engine consults outside the
// tick: a text completer and a memory store, plus the retry policy used
// when they fail.
//
// Collaborators never touch kernel state directly. The engine calls them
// between ticks and folds their results into the kernel on a later tick.
package collab
