package models

type TicketStatus string

const (
	TicketStatusPurchased = TicketStatus("PURCHASED")
	TicketStatusListed    = TicketStatus("LISTED")
	TicketStatusSold      = TicketStatus("SOLD")
)

type SaleStatus string

const (
	SaleStatusPending   = SaleStatus("PENDING")
	SaleStatusCompleted = SaleStatus("COMPLETED")
	SaleStatusCancelled = SaleStatus("CANCELLED")
)

type InvoiceStatus string

const (
	InvoiceStatusOpen      = InvoiceStatus("OPEN")
	InvoiceStatusPaid      = InvoiceStatus("PAID")
	InvoiceStatusCancelled = InvoiceStatus("CANCELLED")
)

type PosAccountStatus string

const (
	PosAccountStatusActive   = PosAccountStatus("ACTIVE")
	PosAccountStatusInactive = PosAccountStatus("INACTIVE")
	PosAccountStatusUnknown  = PosAccountStatus("UNKNOWN")
)

// Match types reported by FindOrCreateEvent, ordered by certainty.
const (
	MatchTypePosProductionId = "pos_production_id"
	MatchTypeTmEventId       = "tm_event_id"
	MatchTypeNameDate        = "name_date"
	MatchTypeFuzzyName       = "fuzzy_name"
	MatchTypeCreated         = "created"
	MatchTypeNone            = "none"
)

const (
	SyncRunStatusPending = "PENDING"
	SyncRunStatusRunning = "RUNNING"
	SyncRunStatusSuccess = "SUCCESS"
	SyncRunStatusPartial = "PARTIAL"
	SyncRunStatusFailed  = "FAILED"
)

const (
	SyncTriggeredManual   = "manual"
	SyncTriggeredSchedule = "schedule"
	SyncTriggeredPubSub   = "pubsub"
)

const (
	SyncEntityListing = "listing"
	SyncEntitySale    = "sale"
	SyncEntityInvoice = "invoice"
	SyncEntityAccount = "account"
)
