package daily

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lifepath/internal/numerology"
	"lifepath/pkg/tgui"
)

// PostSettings controls how a post is rendered.
type PostSettings struct {
	Title   string
	URLHost string
	// TZLabel replaces the computed zone abbreviation when set.
	TZLabel string
	// Location and the post hour/minute pick the abbreviation (PST vs PDT).
	Location *time.Location
	Hour     int
	Minute   int
}

// Post is a rendered daily message for one date.
type Post struct {
	Date   numerology.CalendarDate
	Result numerology.Result
	Title  string
	URL    string
	Zone   string
}

// BirthdateURL returns the reference link for d on host.
func BirthdateURL(host string, d numerology.CalendarDate) string {
	return "https://" + host + "/?birthdate=" + d.String()
}

// ZoneLabel returns the abbreviation in effect at the post time on d.
func ZoneLabel(ps PostSettings, d numerology.CalendarDate) string {
	if l := strings.TrimSpace(ps.TZLabel); l != "" {
		return l
	}
	loc := ps.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, ps.Hour, ps.Minute, 0, 0, loc).Format("MST")
}

// Render computes the numbers for d and lays out the post.
func Render(ps PostSettings, d numerology.CalendarDate) Post {
	return Post{
		Date:   d,
		Result: numerology.Reduce(d),
		Title:  ps.Title,
		URL:    BirthdateURL(ps.URLHost, d),
		Zone:   ZoneLabel(ps, d),
	}
}

func (p Post) header() string {
	return fmt.Sprintf("%s — %s (%s)", p.Title, p.Date.Long(), p.Zone)
}

func (p Post) fill(b *tgui.Builder) *tgui.Builder {
	return b.
		Title("", p.header()).
		Link("URL", p.URL).
		Field("Life Path", strconv.Itoa(p.Result.Primary)+" / "+strconv.Itoa(p.Result.DigitTotal)).
		Field("Secondary energy", strconv.Itoa(p.Result.SecondaryEnergy))
}

// Message is the Telegram HTML payload.
func (p Post) Message() tgui.Message { return p.fill(tgui.New()).Build() }

// HTML is the Telegram HTML body.
func (p Post) HTML() string { return p.fill(tgui.New()).Text() }

// Plain is the unformatted body used by the CLI.
func (p Post) Plain() string { return p.fill(tgui.Plain()).Text() }
