// ABOUTME: Builds rendered posts from validated ledger entries of one room
// ABOUTME: Resolves quotes locally, extracts room/attachment links, neutralizes markup

package board

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/kevachat/geminiboard/internal/cache"
	"github.com/kevachat/geminiboard/internal/codec"
	"github.com/kevachat/geminiboard/internal/ledger"
	"github.com/kevachat/geminiboard/internal/locale"
)

// quoteDepth bounds quote expansion: a quoted post's own quote is never
// expanded, so reference cycles terminate.
const quoteDepth = 1

// namespaceToken matches namespace-id-shaped tokens inside a post body.
var namespaceToken = regexp.MustCompile(`\bN[A-Za-z0-9]{33}\b`)

// Prober reports whether a namespace is a binary attachment and its label.
// err is set when the answer is unknown, not when the namespace is a room.
type Prober interface {
	Probe(ctx context.Context, namespace string) (label string, ok bool, err error)
}

// Post is the derived view of one valid ledger entry.
type Post struct {
	Namespace string
	TxID      string
	Time      time.Time
	Author    string
	Quote     string // already quoted and escaped; empty without a mention
	Body      string // escaped, mention stripped
	Links     []string
	Pending   bool
}

// Assembler derives posts. It holds no per-request state.
type Assembler struct {
	validator *codec.Validator
	names     *Names
	media     Prober
	linker    Linker
	catalog   *locale.Catalog
	views     *Views
	cache     cache.Cache
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// AssemblerOptions wires an Assembler.
type AssemblerOptions struct {
	Validator *codec.Validator
	Names     *Names
	Media     Prober
	Linker    Linker
	Catalog   *locale.Catalog
	Views     *Views
	Cache     cache.Cache
	TTL       time.Duration
	Logger    *slog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(opts AssemblerOptions) *Assembler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = locale.Default()
	}
	views := opts.Views
	if views == nil {
		views = NewViews(catalog)
	}
	return &Assembler{
		validator: opts.Validator,
		names:     opts.Names,
		media:     opts.Media,
		linker:    opts.Linker,
		catalog:   catalog,
		views:     views,
		cache:     opts.Cache,
		ttl:       opts.TTL,
		logger:    logger.With("component", "assembler"),
		now:       time.Now,
	}
}

func postKey(namespace, txid string) cache.Key {
	return cache.NewKey("board", "post", namespace, txid)
}

// Assemble derives the post for e using raw, the unfiltered entries of the
// same room, for quote lookup. It returns false when e is not a valid post.
func (a *Assembler) Assemble(ctx context.Context, namespace string, e ledger.Entry, raw []ledger.Entry) (Post, bool) {
	c, ok := a.validator.Candidate(e)
	if !ok {
		return Post{}, false
	}

	key := postKey(namespace, e.TxID)
	if e.TxID != "" {
		if p, ok := cache.Get[Post](a.cache, key); ok {
			// pending state changes once the write confirms
			p.Pending = e.Pending
			return p, true
		}
	}

	quote, resolved := a.quote(e.Value, raw, quoteDepth)
	body := codec.StripMention(e.Value)
	links, settled := a.links(ctx, body)

	p := Post{
		Namespace: namespace,
		TxID:      e.TxID,
		Time:      c.Time,
		Author:    a.validator.DisplayAuthor(c.Author),
		Quote:     quote,
		Body:      Escape(body),
		Links:     links,
		Pending:   e.Pending,
	}

	// a missing quote target may still arrive and a failed lookup may
	// succeed later, so only settled posts are cached
	if resolved && settled && e.TxID != "" {
		a.cache.Set(key, p, a.ttl)
	}
	return p, true
}

// quote resolves a leading mention in value. It returns the quoted text and
// whether the result is final (no mention, or the target was found).
func (a *Assembler) quote(value string, raw []ledger.Entry, depth int) (string, bool) {
	id, ok := codec.Mention(value)
	if !ok {
		return "", true
	}
	if depth > 0 {
		if body, ok := a.body(id, raw, depth-1); ok {
			return Quote(body), true
		}
	}
	// best effort: show the referenced id itself
	return Quote(id), false
}

// body returns the raw body, mention stripped, of the valid post with txid
// in raw. Nested quotes are expanded only while depth remains.
func (a *Assembler) body(txid string, raw []ledger.Entry, depth int) (string, bool) {
	for _, e := range raw {
		if e.TxID != txid {
			continue
		}
		if _, ok := a.validator.Candidate(e); !ok {
			return "", false
		}
		body := codec.StripMention(e.Value)
		if depth > 0 {
			if q, _ := a.quote(e.Value, raw, depth); q != "" {
				body = q + "\n" + body
			}
		}
		return body, true
	}
	return "", false
}

// links renders one link line per distinct namespace token in body:
// attachments point at the raw download, anything else at the room.
// settled is false when a probe or name lookup failed and fell back.
func (a *Assembler) links(ctx context.Context, body string) (links []string, settled bool) {
	settled = true
	seen := make(map[string]bool)
	for _, ns := range namespaceToken.FindAllString(body, -1) {
		if seen[ns] {
			continue
		}
		seen[ns] = true

		if a.media != nil {
			label, ok, err := a.media.Probe(ctx, ns)
			if err != nil {
				a.logger.Warn("attachment probe failed", "namespace", ns, "error", err)
				settled = false
			}
			if ok {
				links = append(links, a.linker.Line(RawPath(ns), label))
				continue
			}
		}

		name, err := a.names.Resolve(ctx, ns)
		if err != nil {
			a.logger.Warn("resolving linked room failed", "namespace", ns, "error", err)
			settled = false
		}
		links = append(links, a.linker.Line(RoomPath(ns), name))
	}
	return links, settled
}

// Render formats p as gemtext with its relative time and a single reply
// link scoped to token.
func (a *Assembler) Render(p Post, token string) (string, error) {
	out, err := a.views.Render("post.gmi", postView{
		Author:  p.Author,
		Ago:     a.catalog.Ago(a.now(), p.Time),
		Pending: p.Pending,
		Quote:   p.Quote,
		Body:    p.Body,
		Links:   p.Links,
		Reply:   a.linker.Line(ReplyPath(p.Namespace, p.TxID, token), a.catalog.T("reply")),
	})
	if err != nil {
		return "", err
	}
	return Normalize(out), nil
}
