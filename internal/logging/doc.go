// Package logging provides leveled logging for the video catalog.
//
// The log level is controlled by the LOG_LEVEL environment variable
// (debug, info, warn, error) or the DEBUG shortcut (DEBUG=true enables
// debug output). The default level is info.
package logging
