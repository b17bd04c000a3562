// Package tokenstore holds the durable copies of bearer tokens: a 0600 file
// on disk, a Redis key, or process memory. All stores report a missing token
// as "" with a nil error.
package tokenstore
