package notify

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/eek-site/eek-sub001/internal/config"
)

// quickActionEvents are the events whose internal email carries one-tap
// deep links for the dispatcher.
var quickActionEvents = map[EventType]bool{
	EventBookingLinkCreated: true,
	EventPaymentCompleted:   true,
	EventSupplierAssigned:   true,
	EventCustomerMessage:    true,
}

// renderHTML builds the notification email. Rows for absent fields are
// omitted entirely rather than rendered empty.
func renderHTML(event EventType, meta eventMeta, data Data, links config.LinksConfig) string {
	var b strings.Builder

	b.WriteString(`<html><body style="font-family:Arial,sans-serif;color:#222">`)
	fmt.Fprintf(&b, `<h2>%s %s</h2>`, meta.Emoji, html.EscapeString(meta.Title))
	b.WriteString(`<table cellpadding="6" cellspacing="0" border="0">`)

	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, `<tr><td style="color:#666">%s</td><td><b>%s</b></td></tr>`,
			html.EscapeString(label), html.EscapeString(value))
	}
	moneyRow := func(label string, cents int64) {
		if cents == 0 {
			return
		}
		row(label, formatNZD(cents))
	}

	row("Booking", data.BookingID)
	row("Customer", data.CustomerName)
	row("Phone", data.CustomerPhone)
	row("Email", data.CustomerEmail)
	row("Vehicle", vehicleDesc(data))
	row("Rego", data.Rego)
	row("Pickup", data.PickupLocation)
	row("Drop-off", data.DropoffLocation)
	moneyRow("Price", data.PriceCents)
	row("ETA", data.ETA)
	row("Payment method", data.PaymentMethod)
	row("Supplier", data.SupplierName)
	row("Supplier phone", data.SupplierPhone)
	row("Supplier email", data.SupplierEmail)
	row("Supplier address", data.SupplierAddress)
	moneyRow("Supplier price", data.SupplierPriceCents)
	row("Invoice ref", data.InvoiceRef)
	moneyRow("Invoice amount", data.InvoiceAmountCents)
	row("From", data.MessageFrom)
	row("Message", data.MessageText)
	row("Page", data.PageURL)

	b.WriteString(`</table>`)

	if data.InvoiceLink != "" {
		fmt.Fprintf(&b, `<p><a href="%s">View invoice</a></p>`, html.EscapeString(data.InvoiceLink))
	}
	if data.PaymentLink != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Payment link</a></p>`, html.EscapeString(data.PaymentLink))
	}
	if data.PortalLink != "" {
		fmt.Fprintf(&b, `<p><a href="%s">Open portal</a></p>`, html.EscapeString(data.PortalLink))
	}

	if quickActionEvents[event] {
		writeQuickActions(&b, data, links)
	}

	b.WriteString(`</body></html>`)
	return b.String()
}

// writeQuickActions renders tel:/mailto:/admin deep links scoped to
// whichever party the event concerns.
func writeQuickActions(b *strings.Builder, data Data, links config.LinksConfig) {
	b.WriteString(`<hr><p>`)

	link := func(href, label string) {
		fmt.Fprintf(b, `<a href="%s" style="margin-right:12px">%s</a>`,
			html.EscapeString(href), html.EscapeString(label))
	}

	if data.CustomerPhone != "" {
		link("tel:"+data.CustomerPhone, "Call customer")
		link("sms:"+data.CustomerPhone, "Text customer")
	}
	if data.CustomerEmail != "" {
		link("mailto:"+data.CustomerEmail, "Email customer")
	}
	if data.SupplierPhone != "" {
		link("tel:"+data.SupplierPhone, "Call supplier")
	}
	if data.SupplierEmail != "" {
		link("mailto:"+data.SupplierEmail, "Email supplier")
	}
	if data.BookingID != "" && links.AdminBaseURL != "" {
		link(links.AdminBaseURL+"/jobs/"+url.PathEscape(data.BookingID), "Open job")
	}

	b.WriteString(`</p>`)
}

// smsBody builds the short-message text for an event on one channel.
// The portal link is a bearer credential and only ever goes to the
// supplier's own channel. GSM-7 sanitization happens at send time.
func smsBody(event EventType, ch Channel, data Data) string {
	if data.SMSText != "" {
		return data.SMSText
	}

	switch event {
	case EventPaymentCompleted:
		msg := "Payment received for booking " + data.BookingID + "."
		if data.ETA != "" {
			msg += " ETA " + data.ETA + "."
		}
		return msg + " Questions? Call 0800 769 000."
	case EventSupplierAssigned:
		if ch != ChannelSupplierSMS {
			return customerDispatchBody(data)
		}
		msg := "New job " + data.BookingID
		if data.PickupLocation != "" {
			msg += ": pickup " + data.PickupLocation
		}
		if data.PortalLink != "" {
			msg += " " + data.PortalLink
		}
		return msg
	case EventCustomerMessage, EventSupplierMessage:
		return data.MessageText
	default:
		meta := eventRegistry[event]
		if data.BookingID != "" {
			return meta.Title + " - " + data.BookingID
		}
		return meta.Title
	}
}

func customerDispatchBody(data Data) string {
	msg := "Your tow for booking " + data.BookingID + " is on the way"
	if data.SupplierName != "" {
		msg = data.SupplierName + " is on the way for booking " + data.BookingID
	}
	if data.ETA != "" {
		msg += ", ETA " + data.ETA
	}
	return msg + ". Questions? Call 0800 769 000."
}

func vehicleDesc(data Data) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{data.VehicleYear, data.VehicleColor, data.VehicleMake, data.VehicleModel} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func formatNZD(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
