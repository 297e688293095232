// Package cli implements the gridctl command tree.
//
// Every command runs against one App: a session store, the authenticated
// transport, and the grid and auth services built on top of it. Commands
// that talk to the backend log in first (flags or prompts), do their work
// and log out again; nothing outlives the process.
//
// Commands:
//   - grid <callId> [params...]: load one procedure and print the current slice
//   - grids <callId>...: load several procedures concurrently
//   - login: check credentials and print the user record
//   - call <path>: post a JSON body and print the normalised envelope
//   - dates: print the YYYYMMDD helper values
package cli
