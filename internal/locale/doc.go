// Package locale holds the board's UI strings.
//
// A Catalog maps keys to strings and to three plural forms (one, few, many).
// The built-in English catalog is embedded; a TOML file can override any key.
// Ago renders relative times such as "3 days ago".
package locale
