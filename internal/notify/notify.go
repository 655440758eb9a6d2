package notify

import (
	"context"
	"fmt"

	"github.com/eek-site/eek-sub001/internal/config"
	"github.com/eek-site/eek-sub001/internal/metrics"
	"github.com/eek-site/eek-sub001/internal/util"

	"github.com/rs/zerolog"
)

// EventType is the closed set of notification events.
type EventType string

const (
	EventBookingLinkCreated EventType = "booking_link_created"
	EventBookingLinkSent    EventType = "booking_link_sent"
	EventPaymentPageViewed  EventType = "payment_page_viewed"
	EventPaymentStarted     EventType = "payment_started"
	EventPaymentCompleted   EventType = "payment_completed"
	EventPaymentFailed      EventType = "payment_failed"
	EventVehicleLookup      EventType = "vehicle_lookup"
	EventJobAddedToStories  EventType = "job_added_to_stories"
	EventCustomerMessage    EventType = "customer_message"
	EventSupplierMessage    EventType = "supplier_message"
	EventSupplierAssigned   EventType = "supplier_assigned"
	EventSupplierConfirmed  EventType = "supplier_confirmed"
	EventSupplierInvoice    EventType = "supplier_invoice"
	EventAdditionalCharge   EventType = "additional_charge"
	EventVisitorArrived     EventType = "visitor_arrived"
)

type eventMeta struct {
	Title string
	Emoji string
}

var eventRegistry = map[EventType]eventMeta{
	EventBookingLinkCreated: {"Booking link created", "🔗"},
	EventBookingLinkSent:    {"Booking link sent", "📨"},
	EventPaymentPageViewed:  {"Payment page viewed", "👀"},
	EventPaymentStarted:     {"Payment started", "💳"},
	EventPaymentCompleted:   {"Payment completed", "✅"},
	EventPaymentFailed:      {"Payment failed", "❌"},
	EventVehicleLookup:      {"Vehicle lookup", "🔍"},
	EventJobAddedToStories:  {"Job added to stories", "📌"},
	EventCustomerMessage:    {"Customer message", "💬"},
	EventSupplierMessage:    {"Supplier message", "📣"},
	EventSupplierAssigned:   {"Supplier assigned", "🚚"},
	EventSupplierConfirmed:  {"Supplier confirmed", "🤝"},
	EventSupplierInvoice:    {"Supplier invoice", "🧾"},
	EventAdditionalCharge:   {"Additional charge", "💲"},
	EventVisitorArrived:     {"Visitor arrived", "🌐"},
}

// IsValidEvent reports whether e is a registered notification event.
func IsValidEvent(e EventType) bool {
	_, ok := eventRegistry[e]
	return ok
}

// Data carries whichever fields the event has; absent fields are simply
// not rendered.
type Data struct {
	BookingID string

	CustomerName  string
	CustomerPhone string
	CustomerEmail string

	VehicleMake  string
	VehicleModel string
	VehicleColor string
	VehicleYear  string
	Rego         string

	PickupLocation  string
	DropoffLocation string

	PriceCents    int64
	ETA           string
	PaymentMethod string

	SupplierName       string
	SupplierPhone      string
	SupplierEmail      string
	SupplierAddress    string
	SupplierPriceCents int64

	InvoiceRef         string
	InvoiceAmountCents int64
	InvoiceLink        string

	MessageFrom string
	MessageText string

	PortalLink  string
	PaymentLink string
	PageURL     string

	// SMSText overrides the default SMS body when set.
	SMSText string
}

// Channel identifies one delivery target.
type Channel string

const (
	ChannelInternal      Channel = "internal"
	ChannelCustomerEmail Channel = "customer_email"
	ChannelCustomerSMS   Channel = "customer_sms"
	ChannelSupplierEmail Channel = "supplier_email"
	ChannelSupplierSMS   Channel = "supplier_sms"
	ChannelPush          Channel = "push"
)

// ChannelResult is the structured per-channel outcome. Callers and tests
// assert on it instead of parsing logs.
type ChannelResult struct {
	Channel   Channel `json:"channel"`
	Attempted bool    `json:"attempted"`
	Delivered bool    `json:"delivered"`
	Error     string  `json:"error,omitempty"`
}

// Result aggregates all channel outcomes for one event.
type Result struct {
	Event    EventType       `json:"event"`
	Channels []ChannelResult `json:"channels"`
}

// Get returns the result for a channel, zero value when not attempted.
func (r Result) Get(ch Channel) ChannelResult {
	for _, c := range r.Channels {
		if c.Channel == ch {
			return c
		}
	}
	return ChannelResult{Channel: ch}
}

// EmailSent reports whether any email channel delivered.
func (r Result) EmailSent() bool {
	for _, c := range r.Channels {
		switch c.Channel {
		case ChannelInternal, ChannelCustomerEmail, ChannelSupplierEmail:
			if c.Delivered {
				return true
			}
		}
	}
	return false
}

// SMSSent reports whether any SMS channel delivered.
func (r Result) SMSSent() bool {
	for _, c := range r.Channels {
		switch c.Channel {
		case ChannelCustomerSMS, ChannelSupplierSMS:
			if c.Delivered {
				return true
			}
		}
	}
	return false
}

// Mailer sends one message. html selects HTML vs plain-text body.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string, html bool) error
}

// RetryEnqueuer accepts failed internal deliveries for later retry.
type RetryEnqueuer interface {
	EnqueueMail(ctx context.Context, to, subject, body string, html bool) error
}

// Notifier renders and fans out notification events. Failures never
// escape: a dead mail provider degrades to logging, and the parent
// business operation proceeds regardless.
type Notifier struct {
	mailer  Mailer
	retry   RetryEnqueuer
	mailCfg config.MailConfig
	smsCfg  config.SMSConfig
	links   config.LinksConfig
	logger  *zerolog.Logger
}

func NewNotifier(mailer Mailer, retry RetryEnqueuer, mailCfg config.MailConfig, smsCfg config.SMSConfig, links config.LinksConfig, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		mailer:  mailer,
		retry:   retry,
		mailCfg: mailCfg,
		smsCfg:  smsCfg,
		links:   links,
		logger:  logger,
	}
}

// Notify renders the event and delivers it on the requested channels.
// ChannelInternal is always included. Never returns an error.
func (n *Notifier) Notify(ctx context.Context, event EventType, data Data, channels ...Channel) Result {
	result := Result{Event: event}
	if !IsValidEvent(event) {
		n.logger.Error().Str("event", string(event)).Msg("unknown notification event, dropping")
		return result
	}

	meta := eventRegistry[event]
	subject := fmt.Sprintf("%s %s", meta.Emoji, meta.Title)
	if data.BookingID != "" {
		subject += " - " + data.BookingID
	}
	htmlBody := renderHTML(event, meta, data, n.links)

	wanted := map[Channel]bool{ChannelInternal: true}
	for _, ch := range channels {
		wanted[ch] = true
	}

	if wanted[ChannelInternal] {
		result.Channels = append(result.Channels, n.sendInternal(ctx, subject, htmlBody))
	}
	if wanted[ChannelCustomerEmail] {
		result.Channels = append(result.Channels, n.sendEmail(ctx, ChannelCustomerEmail, data.CustomerEmail, subject, htmlBody))
	}
	if wanted[ChannelCustomerSMS] {
		result.Channels = append(result.Channels, n.sendSMS(ctx, ChannelCustomerSMS, data.CustomerPhone, smsBody(event, ChannelCustomerSMS, data)))
	}
	if wanted[ChannelSupplierEmail] {
		result.Channels = append(result.Channels, n.sendEmail(ctx, ChannelSupplierEmail, data.SupplierEmail, subject, htmlBody))
	}
	if wanted[ChannelSupplierSMS] {
		result.Channels = append(result.Channels, n.sendSMS(ctx, ChannelSupplierSMS, data.SupplierPhone, smsBody(event, ChannelSupplierSMS, data)))
	}
	if wanted[ChannelPush] {
		result.Channels = append(result.Channels, n.sendPush(event, data))
	}

	for _, c := range result.Channels {
		outcome := "delivered"
		if !c.Delivered {
			outcome = "failed"
		}
		metrics.IncNotification(string(c.Channel), outcome)
	}

	return result
}

func (n *Notifier) sendInternal(ctx context.Context, subject, body string) ChannelResult {
	res := n.deliverMail(ctx, ChannelInternal, n.mailCfg.AdminMailbox, subject, body, true)
	if res.Attempted && !res.Delivered && n.retry != nil && !n.mailCfg.Demo() {
		if err := n.retry.EnqueueMail(ctx, n.mailCfg.AdminMailbox, subject, body, true); err != nil {
			n.logger.Error().Err(err).Msg("failed to queue internal mail for retry")
		}
	}
	return res
}

func (n *Notifier) sendEmail(ctx context.Context, ch Channel, to, subject, body string) ChannelResult {
	return n.deliverMail(ctx, ch, to, subject, body, true)
}

func (n *Notifier) deliverMail(ctx context.Context, ch Channel, to, subject, body string, html bool) ChannelResult {
	res := ChannelResult{Channel: ch}
	if to == "" {
		res.Error = "no recipient"
		return res
	}
	res.Attempted = true

	if n.mailer == nil || n.mailCfg.Demo() {
		// Demo mode: log instead of send, report success to the caller's
		// channel listing but not as delivered.
		n.logger.Info().Str("channel", string(ch)).Str("to", to).Str("subject", subject).Msg("mail demo mode, not sending")
		res.Error = "mail not configured"
		return res
	}

	if err := n.mailer.Send(ctx, to, subject, body, html); err != nil {
		n.logger.Error().Err(err).Str("channel", string(ch)).Str("to", to).Msg("mail send failed")
		res.Error = err.Error()
		return res
	}

	res.Delivered = true
	return res
}

func (n *Notifier) sendSMS(ctx context.Context, ch Channel, phone, body string) ChannelResult {
	res := ChannelResult{Channel: ch}
	if phone == "" {
		res.Error = "no recipient"
		return res
	}
	if n.smsCfg.GatewayDomain == "" {
		res.Attempted = true
		n.logger.Info().Str("channel", string(ch)).Str("to", phone).Msg("sms gateway not configured, not sending")
		res.Error = "sms not configured"
		return res
	}

	number, err := util.NormalizeMobile(phone, n.smsCfg.CountryCode)
	if err != nil {
		res.Error = err.Error()
		n.logger.Warn().Err(err).Str("channel", string(ch)).Str("phone", phone).Msg("sms number rejected")
		return res
	}

	res.Attempted = true
	address := number + "@" + n.smsCfg.GatewayDomain
	text := util.SanitizeGSM(body)

	// SMS rides the mail provider: the gateway converts email to SMS.
	mailRes := n.deliverMail(ctx, ch, address, "", text, false)
	mailRes.Attempted = true
	return mailRes
}

func (n *Notifier) sendPush(event EventType, data Data) ChannelResult {
	// Push is a stub: the mobile app is not shipped yet.
	n.logger.Debug().Str("event", string(event)).Str("booking_id", data.BookingID).Msg("push notification stub")
	return ChannelResult{Channel: ChannelPush, Attempted: true, Error: "push not configured"}
}
