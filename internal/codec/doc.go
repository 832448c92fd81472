// Package codec validates raw ledger entries and submitted messages.
//
// A ledger entry is a valid post candidate when its key does not start with
// the reserved "_" prefix, its value matches the configured value pattern,
// and its key decodes as "timestamp@author". Submitted messages are trimmed,
// percent-decoded and bounded to MaxMessageLength characters.
package codec
