// ABOUTME: Absolute gemini:// link construction for the configured host
// ABOUTME: Route path helpers shared by the views and the router

package board

import "fmt"

// DefaultPort is the standard Gemini port, omitted from generated links.
const DefaultPort = 1965

// Linker builds absolute gemini:// links for the configured host.
type Linker struct {
	Host string
	Port int
}

// URL returns the absolute URL of path.
func (l Linker) URL(path string) string {
	if l.Port == 0 || l.Port == DefaultPort {
		return fmt.Sprintf("gemini://%s%s", l.Host, path)
	}
	return fmt.Sprintf("gemini://%s:%d%s", l.Host, l.Port, path)
}

// Line returns a gemtext link line to path labelled name.
func (l Linker) Line(path, name string) string {
	if name == "" {
		return "=> " + l.URL(path)
	}
	return "=> " + l.URL(path) + " " + name
}

// RoomPath is the room view of namespace.
func RoomPath(namespace string) string {
	return "/room/" + namespace
}

// RawPath is the attachment download of namespace.
func RawPath(namespace string) string {
	return "/raw/" + namespace
}

// PostPath is the new-post input of namespace under token.
func PostPath(namespace, token string) string {
	return fmt.Sprintf("/room/%s/%s/post", namespace, token)
}

// ReplyPath is the reply input to txid in namespace under token.
func ReplyPath(namespace, txid, token string) string {
	return fmt.Sprintf("/room/%s/%s/%s/reply", namespace, txid, token)
}

// ReceiptPath is the payment instructions of pool entry id in namespace.
func ReceiptPath(namespace string, id int64) string {
	return fmt.Sprintf("/room/%s/pool/%d", namespace, id)
}
