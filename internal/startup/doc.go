// Package startup handles process initialization: environment-driven
// configuration, directory validation, media tool checks, and the
// structured startup/shutdown logging the server emits around them.
package startup
