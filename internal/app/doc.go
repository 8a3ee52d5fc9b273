// Package app contains the console runner. It loads a workspace file, builds
// and runs the workspace until it settles, and prints the selected outputs,
// decoupled from any specific entrypoint like a CLI.
package app
