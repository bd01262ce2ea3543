// Package search fans a keyword out to every configured media server and
// reports one block per server as each answer arrives.
//
// Each server is searched on its own goroutine. A server that fails only
// affects its own block; the dispatcher returns after every server has
// reported.
package search
