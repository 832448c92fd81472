// ABOUTME: Parses and validates raw ledger key/value pairs into typed post fields
// ABOUTME: Patterns come from configuration and are compiled once per Validator

package codec

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kevachat/geminiboard/internal/ledger"
)

// MaxMessageLength is the longest accepted message, in characters, after
// trimming, percent-decoding and prepending a mention.
const MaxMessageLength = 3072

// AnonAuthor is shown for submissions and for legacy author names.
const AnonAuthor = "anon"

// Default patterns used when configuration leaves a field empty.
const (
	DefaultKeyPattern   = `^([0-9]+)@([^@\s]+)$`
	DefaultValuePattern = `(?s)^.+$`
	DefaultUserPattern  = `^[A-Za-z0-9._-]{1,64}$`
	DefaultRoomPattern  = `^.+$`
)

// ErrInvalidMessage is returned when a submitted message cannot be accepted.
var ErrInvalidMessage = errors.New("invalid message")

// mentionPattern matches a leading reply marker: @ or > followed by a txid.
var mentionPattern = regexp.MustCompile(`^[@>]@?([0-9a-fA-F]{64})`)

// Patterns holds the uncompiled validation rules.
type Patterns struct {
	Key   string // two mandatory groups: timestamp, author
	Value string
	User  string
	Room  string
}

// Validator applies compiled patterns. It is immutable after construction
// and safe for concurrent use.
type Validator struct {
	key   *regexp.Regexp
	value *regexp.Regexp
	user  *regexp.Regexp
	room  *regexp.Regexp
}

// NewValidator compiles p, substituting defaults for empty fields.
func NewValidator(p Patterns) (*Validator, error) {
	compile := func(name, pattern, fallback string) (*regexp.Regexp, error) {
		if pattern == "" {
			pattern = fallback
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compiling %s pattern: %w", name, err)
		}
		return re, nil
	}

	var v Validator
	var err error
	if v.key, err = compile("key", p.Key, DefaultKeyPattern); err != nil {
		return nil, err
	}
	if v.key.NumSubexp() < 2 {
		return nil, fmt.Errorf("key pattern %q needs timestamp and author groups", v.key.String())
	}
	if v.value, err = compile("value", p.Value, DefaultValuePattern); err != nil {
		return nil, err
	}
	if v.user, err = compile("user", p.User, DefaultUserPattern); err != nil {
		return nil, err
	}
	if v.room, err = compile("room", p.Room, DefaultRoomPattern); err != nil {
		return nil, err
	}
	return &v, nil
}

// DecodeKey splits a post key into its timestamp and author.
// Both groups are mandatory.
func (v *Validator) DecodeKey(key string) (int64, string, bool) {
	m := v.key.FindStringSubmatch(key)
	if m == nil || m[1] == "" || m[2] == "" {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return ts, m[2], true
}

// ValidValue reports whether value satisfies the configured value pattern.
func (v *Validator) ValidValue(value string) bool {
	return v.value.MatchString(value)
}

// ValidRoomName reports whether a namespace display name may be listed.
func (v *Validator) ValidRoomName(name string) bool {
	return !strings.HasPrefix(name, ledger.SystemPrefix) && v.room.MatchString(name)
}

// DisplayAuthor maps author names that fail the user pattern to AnonAuthor.
func (v *Validator) DisplayAuthor(author string) string {
	if !v.user.MatchString(author) {
		return AnonAuthor
	}
	return author
}

// Candidate is an entry that passed validation, with its decoded key.
type Candidate struct {
	Entry  ledger.Entry
	Time   time.Time
	Author string
}

// Candidate validates e as a post. System entries, values failing the value
// pattern and undecodable keys are rejected.
func (v *Validator) Candidate(e ledger.Entry) (Candidate, bool) {
	if e.IsSystem() {
		return Candidate{}, false
	}
	if !v.ValidValue(e.Value) {
		return Candidate{}, false
	}
	ts, author, ok := v.DecodeKey(e.Key)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{Entry: e, Time: time.Unix(ts, 0), Author: author}, true
}

// EncodeKey builds a post key from a timestamp and an author.
func EncodeKey(t time.Time, author string) string {
	return fmt.Sprintf("%d@%s", t.Unix(), author)
}

// Mention returns the txid referenced by a leading reply marker.
func Mention(value string) (string, bool) {
	m := mentionPattern.FindStringSubmatch(value)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// StripMention removes a leading reply marker from value.
func StripMention(value string) string {
	loc := mentionPattern.FindStringIndex(value)
	if loc == nil {
		return value
	}
	return value[loc[1]:]
}

// PrepareMessage turns a raw submitted query into the stored post value:
// trim, percent-decode, prepend the reply marker, then check the length.
func PrepareMessage(raw, mention string) (string, error) {
	decoded, err := url.QueryUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	message := strings.TrimSpace(decoded)
	if message == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidMessage)
	}
	if mention != "" {
		message = "@" + mention + "\n" + message
	}

	if n := utf8.RuneCountInString(message); n < 1 || n > MaxMessageLength {
		return "", fmt.Errorf("%w: length %d", ErrInvalidMessage, n)
	}
	return message, nil
}
