// Package media reads binary attachments stored in ledger namespaces.
package media
