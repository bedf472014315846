// Package cli implements guardctl, the operator command line of GophGuard.
//
// Commands:
//   - keygen              print a random 32-byte hex key for the vault cipher
//   - check [-offline]    score a password read without echo and look it up
//     in the breach corpus by k-anonymity
//   - check-email <addr>  list known breaches of an account
//   - unlock <user-id>    clear the failed-login counter and lock of a user
//   - ping                check that the server answers
//   - export <email>      log in and export the vault, printing the download URL
//
// App.Run dispatches on the first positional argument and returns the
// process exit code.
package cli
