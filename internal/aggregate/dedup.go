package aggregate

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/geocoder89/whattodo/internal/domain/event"
)

// cosmetic suffixes providers append to the same listing
var titleSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s*[(\[]\s*(?:ages?\s*)?\d{1,2}\s*\+\s*[)\]]$`),
	regexp.MustCompile(`\s*[(\[]\s*all\s+ages\s*[)\]]$`),
	regexp.MustCompile(`\s*[-–—:|]\s*(?:ages?\s*)?\d{1,2}\s*\+$`),
	regexp.MustCompile(`\s*[-–—:|]\s*all\s+ages$`),
}

var trailingPunct = regexp.MustCompile(`[\s\-–—:|,]+$`)

const defaultURLDepth = 3

var urlDepthByHost = map[string]int{
	"seatgeek.com":     2,
	"eventbrite.com":   2,
	"ticketmaster.com": 3,
	"yelp.com":         2,
}

// Dedupe collapses events describing the same occurrence, keeping the first of each.
// Two events match on normalized title and start. Ticket URLs only tell them apart when
// both point at the same ticketing host; the same show sold by two providers collapses.
func Dedupe(events []event.Event) []event.Event {
	seen := make(map[string][]ticketRef, len(events))
	out := make([]event.Event, 0, len(events))

	for _, e := range events {
		k := Key(e)
		ref := parseTicketRef(e.TicketURL)
		if ref.sameListing(seen[k]) {
			continue
		}
		seen[k] = append(seen[k], ref)
		out = append(out, e)
	}
	return out
}

// Key is the occurrence key: normalized title and start (timestamp or date).
func Key(e event.Event) string {
	when := strings.TrimSpace(e.StartDateTime)
	if when == "" {
		when = strings.TrimSpace(e.Date)
	}
	return NormalizeTitle(e.Title) + "\x00" + when
}

func NormalizeTitle(title string) string {
	t := strings.Join(strings.Fields(strings.ToLower(title)), " ")

	for {
		before := t
		for _, re := range titleSuffixes {
			t = re.ReplaceAllString(t, "")
		}
		t = trailingPunct.ReplaceAllString(t, "")
		if t == before {
			return t
		}
	}
}

// ticketRef is a ticket URL reduced to its host and listing path prefix.
type ticketRef struct {
	host string
	path string
}

func parseTicketRef(raw string) ticketRef {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ticketRef{}
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	depth := urlDepth(host)
	if len(segments) > depth {
		segments = segments[:depth]
	}
	return ticketRef{host: host, path: strings.ToLower(strings.Join(segments, "/"))}
}

// sameListing reports whether any kept ref with the same occurrence key is this listing.
// Only two URLs on one host can prove two events apart.
func (r ticketRef) sameListing(kept []ticketRef) bool {
	for _, k := range kept {
		if r.host == "" || k.host == "" || r.host != k.host || r.path == k.path {
			return true
		}
	}
	return false
}

func urlDepth(host string) int {
	for suffix, depth := range urlDepthByHost {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return depth
		}
	}
	return defaultURLDepth
}
