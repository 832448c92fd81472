// ABOUTME: Board operations exposed to the front-end: rooms, posts, submissions
// ABOUTME: Each call renders a complete gemtext page or returns an error

package board

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kevachat/geminiboard/internal/locale"
	"github.com/kevachat/geminiboard/internal/pool"
	"github.com/kevachat/geminiboard/internal/session"
)

// Submitter accepts posts and recalls escrow receipts.
type Submitter interface {
	Submit(ctx context.Context, s pool.Submission) (pool.Receipt, error)
	Receipt(ctx context.Context, namespace string, id int64) (pool.Receipt, error)
}

// Attachments serves raw attachment bytes.
type Attachments interface {
	Raw(ctx context.Context, namespace string) ([]byte, string, error)
}

// Service implements the board's read and write operations.
type Service struct {
	rooms       *Rooms
	names       *Names
	assembler   *Assembler
	attachments Attachments
	guard       *session.Guard
	submitter   Submitter
	views       *Views
	catalog     *locale.Catalog
	linker      Linker
	about       []string
	logger      *slog.Logger
}

// ServiceOptions wires a Service.
type ServiceOptions struct {
	Rooms       *Rooms
	Names       *Names
	Assembler   *Assembler
	Attachments Attachments
	Guard       *session.Guard
	Submitter   Submitter
	Views       *Views
	Catalog     *locale.Catalog
	Linker      Linker
	About       []string
	Logger      *slog.Logger
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
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
	return &Service{
		rooms:       opts.Rooms,
		names:       opts.Names,
		assembler:   opts.Assembler,
		attachments: opts.Attachments,
		guard:       opts.Guard,
		submitter:   opts.Submitter,
		views:       views,
		catalog:     catalog,
		linker:      opts.Linker,
		about:       opts.About,
		logger:      logger.With("component", "board"),
	}
}

// ListRooms renders the room index.
func (s *Service) ListRooms(ctx context.Context) (string, error) {
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return "", err
	}

	items := make([]roomItem, 0, len(rooms))
	for _, r := range rooms {
		items = append(items, roomItem{
			Link:    s.linker.Line(RoomPath(r.ID), r.Name),
			Updated: r.Updated,
			Total:   r.Total,
		})
	}
	return s.views.Render("rooms.gmi", roomsView{About: s.about, Rooms: items})
}

// ListPosts renders the posts of namespace, newest first. A fresh session
// token is issued for the post and reply links on the page.
func (s *Service) ListPosts(ctx context.Context, namespace string) (string, error) {
	raw, err := s.rooms.Entries(ctx, namespace)
	if err != nil {
		return "", err
	}

	var posts []Post
	for _, e := range raw {
		if p, ok := s.assembler.Assemble(ctx, namespace, e, raw); ok {
			posts = append(posts, p)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Time.After(posts[j].Time)
	})

	token := s.guard.Issue()

	rendered := make([]string, 0, len(posts))
	for _, p := range posts {
		out, err := s.assembler.Render(p, token)
		if err != nil {
			return "", err
		}
		rendered = append(rendered, out)
	}

	out, err := s.views.Render("posts.gmi", postsView{
		Home:    s.linker.URL("/"),
		Subject: s.names.DisplayName(ctx, namespace),
		Post:    s.linker.URL(PostPath(namespace, token)),
		Posts:   rendered,
	})
	if err != nil {
		return "", err
	}
	return Normalize(out), nil
}

// Submit accepts a post and renders its outcome page.
func (s *Service) Submit(ctx context.Context, sub pool.Submission) (string, error) {
	r, err := s.submitter.Submit(ctx, sub)
	if err != nil {
		s.logger.Debug("submission not accepted", "namespace", sub.Namespace, "error", err)
		return "", err
	}
	return s.RenderSent(ctx, r)
}

// RenderSent renders a published post's txid, or payment instructions for
// an escrowed one.
func (s *Service) RenderSent(ctx context.Context, r pool.Receipt) (string, error) {
	room := s.linker.Line(RoomPath(r.Namespace), s.catalog.T("room"))

	if !r.Escrowed() {
		return s.views.Render("sent.gmi", sentView{TxID: r.TxID, Room: room})
	}
	return s.views.Render("pending.gmi", pendingView{
		Address:  r.Address,
		Amount:   r.Cost.String(),
		Deadline: r.Deadline,
		Receipt:  s.linker.URL(ReceiptPath(r.Namespace, r.ID)),
		Room:     room,
	})
}

// Receipt re-renders the payment instructions of pool entry id.
func (s *Service) Receipt(ctx context.Context, namespace string, id int64) (string, error) {
	r, err := s.submitter.Receipt(ctx, namespace, id)
	if err != nil {
		return "", err
	}
	return s.RenderSent(ctx, r)
}

// Raw returns attachment bytes and their MIME type.
func (s *Service) Raw(ctx context.Context, namespace string) ([]byte, string, error) {
	return s.attachments.Raw(ctx, namespace)
}

// Oops renders the generic failure page.
func (s *Service) Oops() string {
	out, err := s.views.Render("oops.gmi", oopsView{Home: s.linker.URL("/")})
	if err != nil {
		s.logger.Error("rendering oops page", "error", err)
		return s.catalog.T("oops") + "\n"
	}
	return out
}
