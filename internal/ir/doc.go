// Package ir provides the canonical value model used to fingerprint mapped
// schemas.
//
// A Value is a sealed tree of String, Int, Bool, List and Object nodes.
// Floats are not representable, so every value has exactly one canonical
// encoding: RFC 8785 style JSON with NFC-normalized strings, object keys in
// UTF-16 code unit order and no insignificant whitespace.
//
// Fingerprint hashes that encoding with SHA-256 under a domain prefix. The
// store records one fingerprint per table and compares them on migration
// to detect schema drift.
package ir
