// Package registry owns the three persisted records embyscout works from: the
// media server list, the site list, and the panel position.
//
// Every mutation reads the whole record, edits it in memory, and writes it
// back, so list order is preserved and the storage format stays compatible
// with the flat JSON records the browser panel kept. Sites reference servers
// by list index; removing a server leaves such references dangling, and
// lookups report them as unbound instead of failing.
package registry
