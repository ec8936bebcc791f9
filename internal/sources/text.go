package sources

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/geocoder89/whattodo/internal/domain/event"
)

const maxDescriptionRunes = 1000

// cleanText turns provider descriptions, which are often HTML fragments, into plain text.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxDescriptionRunes {
		r := []rune(s)
		s = string(r[:maxDescriptionRunes]) + "…"
	}
	return s
}

func formatAmount(v float64) string {
	return "$" + strconv.FormatFloat(v, 'f', -1, 64)
}

// priceRange renders "$lo - $hi", "$lo" when they match, "Starting at $lo" with no upper bound.
func priceRange(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil && *lo == *hi:
		return formatAmount(*lo)
	case lo != nil && hi != nil:
		return formatAmount(*lo) + " - " + formatAmount(*hi)
	case lo != nil:
		return "Starting at " + formatAmount(*lo)
	default:
		return event.PlaceholderPrice
	}
}

// splitLocal splits "2025-06-01T20:00:00" into date and a human time of day.
func splitLocal(local string) (date, clock string) {
	local = strings.TrimSpace(local)
	d, t, found := strings.Cut(local, "T")
	if !found {
		return d, ""
	}
	return d, humanTime(t)
}

func humanTime(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return ""
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, t); err == nil {
			return parsed.Format("3:04 PM")
		}
	}
	// keep anything after the clock (zone offsets) out of the human string
	if len(t) >= 8 {
		if parsed, err := time.Parse("15:04:05", t[:8]); err == nil {
			return parsed.Format("3:04 PM")
		}
	}
	return ""
}

func parseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// decodeRecords decodes each raw record on its own so one malformed entry only drops itself.
func decodeRecords[T any](log *slog.Logger, source string, raw []json.RawMessage, build func(T) event.Event) []event.Event {
	out := make([]event.Event, 0, len(raw))
	for i, r := range raw {
		var rec T
		if err := json.Unmarshal(r, &rec); err != nil {
			log.Warn("skipping malformed record", slog.String("source", source), slog.Int("index", i), slog.String("err", err.Error()))
			continue
		}
		e, err := build(rec).Normalize()
		if err != nil {
			log.Warn("skipping invalid record", slog.String("source", source), slog.Int("index", i), slog.String("err", err.Error()))
			continue
		}
		out = append(out, e)
	}
	return out
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
