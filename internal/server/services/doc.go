// Package services implements the server's business operations on top of
// the repositories: account registration and session tokens (AuthService),
// the per-user timer ledger (TimerLedger) and timer history export
// (ExportService).
//
// Services return the sentinel errors from internal/common, possibly
// wrapped; callers match them with errors.Is.
package services
