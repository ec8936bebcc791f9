package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/whattodo/internal/domain/event"
)

type sortItem struct {
	e     event.Event
	price float64
	title string
	at    time.Time
	dated bool
}

// Sort returns a stably ordered copy. Ties keep their input order, so sorting an already
// sorted slice with the same spec leaves it unchanged.
func Sort(events []event.Event, spec event.SortSpec) []event.Event {
	items := make([]sortItem, len(events))
	for i, e := range events {
		it := sortItem{e: e}
		switch spec.Field {
		case event.SortByPrice:
			it.price = PriceFloor(e.Price)
		case event.SortByDate:
			it.at, it.dated = e.StartsAt()
		default:
			it.title = strings.ToLower(e.Title)
		}
		items[i] = it
	}

	var less func(a, b sortItem) bool
	switch spec.Field {
	case event.SortByPrice:
		less = func(a, b sortItem) bool {
			if spec.Desc {
				return a.price > b.price
			}
			return a.price < b.price
		}
	case event.SortByDate:
		// undated events go last either way
		less = func(a, b sortItem) bool {
			if a.dated != b.dated {
				return a.dated
			}
			if spec.Desc {
				return a.at.After(b.at)
			}
			return a.at.Before(b.at)
		}
	default:
		less = func(a, b sortItem) bool { return a.title < b.title }
	}

	sort.SliceStable(items, func(i, j int) bool { return less(items[i], items[j]) })

	out := make([]event.Event, len(items))
	for i, it := range items {
		out[i] = it.e
	}
	return out
}
