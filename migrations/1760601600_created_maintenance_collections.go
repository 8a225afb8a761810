package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

var ticketFields = []string{
	"eventId", "eventName", "eventSubName", "eventDate", "eventTime", "eventLocation",
	"totalAmountPaid", "pricePerTicket", "imageId", "qrCodeId", "category", "userId", "quantity",
}

var eventFields = []string{
	"name", "subName", "location", "venue", "imageId", "date", "time",
	"price", "organiser", "info", "totalTickets", "ticketsLeft",
}

func textFields(names ...string) []core.Field {
	fields := make([]core.Field, 0, len(names))
	for _, name := range names {
		fields = append(fields, &core.TextField{Name: name})
	}
	return fields
}

func maintenanceCollections() []*core.Collection {
	groups := core.NewBaseCollection("groups")
	groups.Fields.Add(textFields("name")...)

	messages := core.NewBaseCollection("chat_messages")
	messages.Fields.Add(textFields("groupsId", "senderId", "message")...)

	listings := core.NewBaseCollection("tickets_for_instant_sale")
	listings.Fields.Add(textFields("ticketId", "quantity", "expiry", "price")...)

	tickets := core.NewBaseCollection("tickets")
	tickets.Fields.Add(textFields(ticketFields...)...)
	tickets.Fields.Add(
		&core.BoolField{Name: "isListedForSale"},
		&core.BoolField{Name: "checkedIn"},
		&core.JSONField{Name: "reconciledListings"},
	)

	// archived copies keep the resale flag as text
	expiredTickets := core.NewBaseCollection("expired_tickets")
	expiredTickets.Fields.Add(textFields(ticketFields...)...)
	expiredTickets.Fields.Add(textFields("isListedForSale", "archivedAt")...)
	expiredTickets.Fields.Add(&core.BoolField{Name: "checkedIn"})

	quarantined := core.NewBaseCollection("quarantined_tickets")
	quarantined.Fields.Add(textFields(ticketFields...)...)
	quarantined.Fields.Add(textFields("isListedForSale", "accountStatus", "quarantinedAt")...)
	quarantined.Fields.Add(&core.BoolField{Name: "checkedIn"})

	events := core.NewBaseCollection("events")
	events.Fields.Add(textFields(eventFields...)...)
	events.Fields.Add(eventExtras()...)

	expiredEvents := core.NewBaseCollection("expired_events")
	expiredEvents.Fields.Add(textFields(eventFields...)...)
	expiredEvents.Fields.Add(eventExtras()...)
	expiredEvents.Fields.Add(&core.TextField{Name: "archivedAt"})

	return []*core.Collection{
		groups, messages, listings, tickets, expiredTickets, quarantined, events, expiredEvents,
	}
}

func eventExtras() []core.Field {
	return []core.Field{
		&core.NumberField{Name: "latitude"},
		&core.NumberField{Name: "longitude"},
		&core.JSONField{Name: "tags"},
		&core.JSONField{Name: "phase"},
		&core.JSONField{Name: "categories"},
	}
}

func init() {
	m.Register(func(app core.App) error {
		for _, collection := range maintenanceCollections() {
			if _, err := app.FindCollectionByNameOrId(collection.Name); err == nil {
				continue
			}
			if err := app.Save(collection); err != nil {
				return err
			}
		}
		return nil
	}, func(app core.App) error {
		for _, collection := range maintenanceCollections() {
			existing, err := app.FindCollectionByNameOrId(collection.Name)
			if err != nil {
				continue
			}
			if err := app.Delete(existing); err != nil {
				return err
			}
		}
		return nil
	})
}
