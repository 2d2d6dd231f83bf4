// Package profile is the target profile registry: one row per channel
// describing its markup dialect, byte budget, text templates, delivery order
// and rate-limit retry policy.
//
// Adding a channel means adding a row here; the renderer and packer are
// generic over the table.
package profile
