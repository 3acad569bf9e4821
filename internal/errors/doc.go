// Package errors provides typed errors with exit codes for fragile.
//
// # Error Types
//
// FragileError is the base error type that wraps an error with a kind and
// an exit code:
//
//	type FragileError struct {
//	    Kind    Kind           // Taxonomy entry
//	    Code    int            // Exit code
//	    Message string         // User-facing message
//	    Cause   error          // Wrapped error
//	    Signal  syscall.Signal // Set for KindInterrupted
//	}
//
// # Exit Codes
//
//	ExitSuccess        = 0   // Test command exited 0
//	ExitUsage          = 1   // Bad invocation
//	ExitInfrastructure = 2   // I/O, collaborator command or control failure
//	ExitSignalBase     = 128 // Interrupted(n) exits with 128+n
//
// A TestExit error carries the test command's own exit status through to
// the process exit code; it is not reported as a failure.
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
