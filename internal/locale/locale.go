// ABOUTME: UI string catalog with three-form plural selection
// ABOUTME: Built-in English defaults, optionally overridden from a TOML file

package locale

import (
	_ "embed"
	"fmt"
	"math"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultCatalog string

// Catalog maps string keys to localized text.
type Catalog struct {
	Strings map[string]string   `toml:"strings"`
	Plurals map[string][]string `toml:"plurals"`
}

// Default returns the built-in English catalog.
func Default() *Catalog {
	c, err := parse(defaultCatalog)
	if err != nil {
		panic("locale: invalid built-in catalog: " + err.Error())
	}
	return c
}

// Load reads a catalog file and merges it over the built-in defaults.
// An empty path returns the defaults.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	var override Catalog
	if _, err := toml.DecodeFile(path, &override); err != nil {
		return nil, fmt.Errorf("reading locale %s: %w", path, err)
	}
	if err := override.validate(); err != nil {
		return nil, fmt.Errorf("validating locale %s: %w", path, err)
	}
	for k, v := range override.Strings {
		c.Strings[k] = v
	}
	for k, v := range override.Plurals {
		c.Plurals[k] = v
	}
	return c, nil
}

func parse(data string) (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(data, &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.Strings == nil {
		c.Strings = make(map[string]string)
	}
	if c.Plurals == nil {
		c.Plurals = make(map[string][]string)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for k, forms := range c.Plurals {
		if len(forms) != 3 {
			return fmt.Errorf("plural %q needs 3 forms, has %d", k, len(forms))
		}
	}
	return nil
}

// T returns the text for key, or key itself when it is not in the catalog.
func (c *Catalog) T(key string) string {
	if s, ok := c.Strings[key]; ok {
		return s
	}
	return key
}

// PluralForm picks the form index for n: 0 one, 1 few, 2 many.
func PluralForm(n int64) int {
	if n < 0 {
		n = -n
	}
	if mod := n % 100; mod > 4 && mod < 20 {
		return 2
	}
	cases := [6]int{2, 0, 1, 1, 1, 2}
	return cases[min(n%10, 5)]
}

// Plural returns the form of key matching n.
func (c *Catalog) Plural(n int64, key string) string {
	forms, ok := c.Plurals[key]
	if !ok {
		return key
	}
	return forms[PluralForm(n)]
}

// Count formats n followed by the matching plural form of key.
func (c *Catalog) Count(n int64, key string) string {
	return fmt.Sprintf("%d %s", n, c.Plural(n, key))
}

// ago units, largest first
var units = []struct {
	seconds int64
	key     string
}{
	{365 * 24 * 60 * 60, "year"},
	{30 * 24 * 60 * 60, "month"},
	{24 * 60 * 60, "day"},
	{60 * 60, "hour"},
	{60, "minute"},
	{1, "second"},
}

// Ago renders the time elapsed from then to now in the largest unit whose
// boundary has been crossed, rounded to the nearest whole unit.
func (c *Catalog) Ago(now, then time.Time) string {
	diff := now.Unix() - then.Unix()
	if diff < 1 {
		return c.T("now")
	}
	for _, u := range units {
		ratio := float64(diff) / float64(u.seconds)
		if ratio >= 1 {
			return c.Count(int64(math.Round(ratio)), u.key)
		}
	}
	return c.T("now")
}
