// Package pagescan finds titles on host web pages and annotates each with its
// library status.
//
// Four selector contracts are recognised: the code block
// (div.panel-block.first-block span.value), the detail title
// (div.main-ui-meta h1 div), list items (div.li-bottom with h3 a, span, and
// .tag), and tagged items (.video-title strong followed by a tag sibling).
// A Markers set remembers elements already handled so a watched page only
// reports what is new.
package pagescan
