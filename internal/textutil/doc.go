// Package textutil provides the title normalization and matching rules used
// to decide whether a media server already holds a title.
//
// The primary use cases are:
//   - Normalizing titles into a comparable key (lower-cased, whitespace and
//     punctuation removed, CJK ideographs kept)
//   - Lossy containment matching between a query and a candidate title
//   - Production-year agreement between a query and a candidate
//   - Cleaning page titles of season, edition, and year decorations
//   - Sanitizing free-form names into safe tokens
//
// Matching is deliberately permissive: a short title fully contained in an
// unrelated longer one is reported as a match.
package textutil
