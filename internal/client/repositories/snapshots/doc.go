// Package snapshots keeps the last push frame of each kind per scope so the
// client can show timer state while offline. Frames are stored in their CBOR
// wire encoding and re-validated on load.
package snapshots
