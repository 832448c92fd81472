// Package cache provides the TTL-keyed memoization layer used by the board.
//
// Keys are structured (component, operation, arguments) and encoded
// deterministically. Slowly changing facts such as namespace display names
// and attachment labels are cached with a long TTL; room totals and entry
// lists use a short TTL and are also invalidated when a post is submitted.
package cache
