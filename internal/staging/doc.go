// Package staging prunes staged uploads under the storage upload directory.
//
// `mediaproc enqueue --stage` copies uploads to <storage>/.uploads/<hash>.<ext>.
// Once the queue no longer references a hash, its staged copy is orphaned and
// CleanOrphaned removes it.
package staging
