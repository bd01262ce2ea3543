// Package library decides whether a title is already present on a media
// server and turns the outcome into the short status labels shown next to
// detected page titles.
package library
