package models

import (
	"time"

	"ticket-maintenance/internal/store"
)

type Event struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SubName      string   `json:"subName"`
	Location     string   `json:"location"`
	Venue        string   `json:"venue"`
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	ImageID      string   `json:"imageId"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Price        string   `json:"price"`
	Organiser    string   `json:"organiser"`
	Info         string   `json:"info"`
	TotalTickets int      `json:"totalTickets"`
	TicketsLeft  int      `json:"ticketsLeft"`
	Tags         []string `json:"tags"`
	Phase        []string `json:"phase"`
	Categories   []string `json:"categories"`
}

func DecodeEvent(doc store.Document) (Event, error) {
	e := Event{
		ID:        doc.ID,
		Name:      decodeString(doc.Get("name")),
		SubName:   decodeString(doc.Get("subName")),
		Location:  decodeString(doc.Get("location")),
		Venue:     decodeString(doc.Get("venue")),
		ImageID:   decodeString(doc.Get("imageId")),
		Date:      decodeString(doc.Get(FieldDate)),
		Time:      decodeString(doc.Get("time")),
		Price:     decodeString(doc.Get("price")),
		Organiser: decodeString(doc.Get("organiser")),
		Info:      decodeString(doc.Get("info")),
	}

	var err error
	if e.Latitude, err = decodeCoordinate("latitude", doc.Get("latitude")); err != nil {
		return Event{}, err
	}
	if e.Longitude, err = decodeCoordinate("longitude", doc.Get("longitude")); err != nil {
		return Event{}, err
	}
	if e.TotalTickets, err = decodeCount("totalTickets", doc.Get("totalTickets"), false); err != nil {
		return Event{}, err
	}
	if e.TicketsLeft, err = decodeCount("ticketsLeft", doc.Get("ticketsLeft"), false); err != nil {
		return Event{}, err
	}
	if e.Tags, err = decodeList("tags", doc.Get("tags")); err != nil {
		return Event{}, err
	}
	if e.Phase, err = decodeList("phase", doc.Get("phase")); err != nil {
		return Event{}, err
	}
	if e.Categories, err = decodeList("categories", doc.Get("categories")); err != nil {
		return Event{}, err
	}
	return e, nil
}

func (e Event) StartsAt(loc *time.Location) (time.Time, error) {
	return ParseLenient(FieldDate, e.Date, loc)
}

// ArchiveFields is the allowlisted copy written to the archived events collection.
func (e Event) ArchiveFields(archivedAt time.Time) map[string]any {
	return map[string]any{
		"name":          e.Name,
		"subName":       e.SubName,
		"location":      e.Location,
		"venue":         e.Venue,
		"latitude":      e.Latitude,
		"longitude":     e.Longitude,
		"imageId":       e.ImageID,
		FieldDate:       e.Date,
		"time":          e.Time,
		"price":         e.Price,
		"organiser":     e.Organiser,
		"info":          e.Info,
		"totalTickets":  e.TotalTickets,
		"ticketsLeft":   e.TicketsLeft,
		"tags":          nonNil(e.Tags),
		"phase":         nonNil(e.Phase),
		"categories":    nonNil(e.Categories),
		FieldArchivedAt: archivedAt.UTC().Format(time.RFC3339),
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
