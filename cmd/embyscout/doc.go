// Package main hosts the embyscout CLI entrypoint and command graph.
//
// Commands work directly against the configured store and media servers:
// searching every server, checking whether a title is in a library,
// triggering rescans, managing the server and site lists, and scanning web
// pages for titles. The serve, start, stop, and status commands manage the
// long-running daemon that offers the same operations over HTTP.
//
// Keep this package lean: behavior lives in the internal packages and is
// surfaced here through commands and rendering only.
package main
