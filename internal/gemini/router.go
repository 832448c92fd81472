// ABOUTME: Maps Gemini request paths to board operations
// ABOUTME: Submissions prompt for input, are rate limited, and fail to the oops page

package gemini

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"

	gmi "git.sr.ht/~adnano/go-gemini"
	"golang.org/x/time/rate"

	"github.com/kevachat/geminiboard/internal/pool"
)

const gemtext = "text/gemini"

// Board is the set of board operations the router exposes.
type Board interface {
	ListRooms(ctx context.Context) (string, error)
	ListPosts(ctx context.Context, namespace string) (string, error)
	Submit(ctx context.Context, s pool.Submission) (string, error)
	Receipt(ctx context.Context, namespace string, id int64) (string, error)
	Raw(ctx context.Context, namespace string) ([]byte, string, error)
	Oops() string
}

var (
	roomsRoute   = regexp.MustCompile(`^/$`)
	roomRoute    = regexp.MustCompile(`^/room/(N[A-Za-z0-9]{33})$`)
	rawRoute     = regexp.MustCompile(`^/raw/(N[A-Za-z0-9]{33})$`)
	postRoute    = regexp.MustCompile(`^/room/(N[A-Za-z0-9]{33})/([0-9a-f-]{36})/post$`)
	replyRoute   = regexp.MustCompile(`^/room/(N[A-Za-z0-9]{33})/([0-9a-fA-F]{64})/([0-9a-f-]{36})/reply$`)
	receiptRoute = regexp.MustCompile(`^/room/(N[A-Za-z0-9]{33})/pool/([0-9]+)$`)
)

// RouterOptions configures a Router.
type RouterOptions struct {
	Board   Board
	Prompt  string        // input prompt shown for post and reply links
	Limiter *rate.Limiter // nil disables submission throttling
	Logger  *slog.Logger
}

// Router maps board paths onto a Board.
type Router struct {
	board   Board
	prompt  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(opts RouterOptions) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		board:   opts.Board,
		prompt:  opts.Prompt,
		limiter: opts.Limiter,
		logger:  logger.With("component", "router"),
	}
}

// NewLimiter allows perMinute submissions with the given burst.
// A non-positive perMinute disables throttling.
func NewLimiter(perMinute, burst int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

// ServeGemini implements the go-gemini Handler interface.
func (r *Router) ServeGemini(ctx context.Context, w gmi.ResponseWriter, req *gmi.Request) {
	resp := r.route(ctx, req.URL)
	if err := resp.write(w); err != nil {
		r.logger.Debug("writing response", "path", req.URL.Path, "error", err)
	}
}

func (r *Router) route(ctx context.Context, u *url.URL) *Response {
	path := u.Path
	if path == "" {
		path = "/"
	}

	switch {
	case roomsRoute.MatchString(path):
		return r.page(r.board.ListRooms(ctx))

	case roomRoute.MatchString(path):
		m := roomRoute.FindStringSubmatch(path)
		return r.page(r.board.ListPosts(ctx, m[1]))

	case rawRoute.MatchString(path):
		m := rawRoute.FindStringSubmatch(path)
		data, mime, err := r.board.Raw(ctx, m[1])
		if err != nil {
			r.logger.Debug("raw request failed", "namespace", m[1], "error", err)
			return r.oops()
		}
		return &Response{Status: gmi.StatusSuccess, Meta: mime, Body: data}

	case postRoute.MatchString(path):
		m := postRoute.FindStringSubmatch(path)
		return r.submit(ctx, u, pool.Submission{Namespace: m[1], Token: m[2]})

	case replyRoute.MatchString(path):
		m := replyRoute.FindStringSubmatch(path)
		return r.submit(ctx, u, pool.Submission{Namespace: m[1], Mention: m[2], Token: m[3]})

	case receiptRoute.MatchString(path):
		m := receiptRoute.FindStringSubmatch(path)
		id, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return r.oops()
		}
		return r.page(r.board.Receipt(ctx, m[1], id))
	}

	return r.oops()
}

func (r *Router) submit(ctx context.Context, u *url.URL, s pool.Submission) *Response {
	if u.RawQuery == "" {
		return &Response{Status: gmi.StatusInput, Meta: r.prompt}
	}
	if r.limiter != nil && !r.limiter.Allow() {
		r.logger.Warn("submission throttled", "namespace", s.Namespace)
		return &Response{Status: gmi.StatusSlowDown, Meta: "60"}
	}

	s.Message = u.RawQuery
	return r.page(r.board.Submit(ctx, s))
}

func (r *Router) page(body string, err error) *Response {
	if err != nil {
		r.logger.Debug("request failed", "error", err)
		return r.oops()
	}
	return &Response{Status: gmi.StatusSuccess, Meta: gemtext, Body: []byte(body)}
}

func (r *Router) oops() *Response {
	return &Response{Status: gmi.StatusSuccess, Meta: gemtext, Body: []byte(r.board.Oops())}
}
