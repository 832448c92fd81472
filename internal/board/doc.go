// Package board derives and renders the message board.
//
// Posts are never stored locally. Each room view reads the room's raw ledger
// entries (pending writes first, then confirmed records), keeps those that
// validate, and assembles them into posts: a leading mention becomes a quote
// of the referenced post from the same room, namespace ids in the body become
// room or attachment links, and user markup is neutralized so it cannot
// forge gemtext structure.
//
// Derived facts are memoized in the shared cache. Display names, attachment
// labels and settled posts are immutable once published and use the long
// TTL. Room totals and raw lists use a short TTL and are dropped on every
// local submission.
package board
