// ABOUTME: Attachment descriptor reader for namespaces that carry a binary file
// ABOUTME: Probes are cached; raw retrieval reassembles base64 pieces from the ledger

package media

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kevachat/geminiboard/internal/cache"
	"github.com/kevachat/geminiboard/internal/ledger"
)

// DescriptorKey is the system record describing an attachment namespace.
const DescriptorKey = "_CLITOR_IS_"

// ErrNotAttachment is returned for namespaces without a valid descriptor.
var ErrNotAttachment = errors.New("not an attachment")

// NamespacePattern matches a namespace id.
var NamespacePattern = regexp.MustCompile(`^N[A-Za-z0-9]{33}$`)

// Descriptor is the decoded attachment metadata.
type Descriptor struct {
	Name   string
	MIME   string
	Size   int64
	Pieces int
}

type descriptorJSON struct {
	File struct {
		Name string `json:"name"`
		MIME string `json:"mime"`
		Size int64  `json:"size"`
	} `json:"file"`
	Pieces struct {
		Total int `json:"total"`
	} `json:"pieces"`
}

// Decode parses a descriptor record value.
func Decode(value string) (*Descriptor, error) {
	var d descriptorJSON
	if err := json.Unmarshal([]byte(value), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAttachment, err)
	}
	if d.Pieces.Total < 1 || d.File.Size < 0 {
		return nil, fmt.Errorf("%w: no pieces", ErrNotAttachment)
	}
	mime := d.File.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	return &Descriptor{
		Name:   d.File.Name,
		MIME:   mime,
		Size:   d.File.Size,
		Pieces: d.Pieces.Total,
	}, nil
}

// Label renders "name (size)", falling back to the namespace for the name.
func (d *Descriptor) Label(namespace string) string {
	name := d.Name
	if name == "" {
		name = namespace
	}
	return fmt.Sprintf("%s (%s)", name, humanize.IBytes(uint64(d.Size)))
}

// Reader looks up attachment descriptors through the ledger.
type Reader struct {
	ledger ledger.Ledger
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewReader creates a Reader. Positive probe results are cached for ttl;
// published descriptors never change.
func NewReader(l ledger.Ledger, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{
		ledger: l,
		cache:  c,
		ttl:    ttl,
		logger: logger.With("component", "media"),
	}
}

// Descriptor returns the attachment descriptor of namespace.
func (r *Reader) Descriptor(ctx context.Context, namespace string) (*Descriptor, error) {
	if !NamespacePattern.MatchString(namespace) {
		return nil, ErrNotAttachment
	}
	e, err := r.ledger.Get(ctx, namespace, DescriptorKey)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ErrNotAttachment
	}
	if err != nil {
		return nil, fmt.Errorf("reading descriptor of %s: %w", namespace, err)
	}
	return Decode(e.Value)
}

// Probe reports whether namespace is an attachment and, if so, its label.
// A namespace without a descriptor is not an attachment; err is only set
// when the ledger could not be read.
func (r *Reader) Probe(ctx context.Context, namespace string) (string, bool, error) {
	key := cache.NewKey("media", "probe", namespace)
	if label, ok := cache.Get[string](r.cache, key); ok {
		return label, true, nil
	}

	d, err := r.Descriptor(ctx, namespace)
	if errors.Is(err, ErrNotAttachment) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	label := d.Label(namespace)
	r.cache.Set(key, label, r.ttl)
	return label, true, nil
}

// Raw reassembles the attachment bytes of namespace and returns them with
// their MIME type. Pieces are stored under keys "0" to "total-1".
func (r *Reader) Raw(ctx context.Context, namespace string) ([]byte, string, error) {
	d, err := r.Descriptor(ctx, namespace)
	if err != nil {
		return nil, "", err
	}

	records, err := r.ledger.Filter(ctx, namespace)
	if err != nil {
		return nil, "", fmt.Errorf("reading pieces of %s: %w", namespace, err)
	}

	pieces := make([][]byte, d.Pieces)
	for _, rec := range records {
		i, err := strconv.Atoi(rec.Key)
		if err != nil || i < 0 || i >= d.Pieces {
			continue
		}
		chunk, err := base64.StdEncoding.DecodeString(rec.Value)
		if err != nil {
			return nil, "", fmt.Errorf("decoding piece %d of %s: %w", i, namespace, err)
		}
		pieces[i] = chunk
	}

	data := make([]byte, 0, d.Size)
	for i, p := range pieces {
		if p == nil {
			return nil, "", fmt.Errorf("piece %d of %s is missing", i, namespace)
		}
		data = append(data, p...)
	}
	return data, d.MIME, nil
}
