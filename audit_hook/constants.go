package audithook

// Action constants for audit events.
const (
	// Reservation actions
	ActionReservationCreated     = "reservation.created"
	ActionReservationConfirmed   = "reservation.confirmed"
	ActionReservationCancelled   = "reservation.cancelled"
	ActionReservationPromoted    = "reservation.promoted"
	ActionReservationRescheduled = "reservation.rescheduled"
	ActionReservationCheckedIn   = "reservation.checked_in"
	ActionReservationCompleted   = "reservation.completed"
	ActionReservationNoShow      = "reservation.no_show"

	// Credit actions
	ActionCreditEntry    = "credit.entry"
	ActionCreditsExpired = "credit.expired"

	// Payment actions
	ActionPaymentApplied  = "payment.applied"
	ActionPaymentIgnored  = "payment.ignored"
	ActionWebhookRejected = "webhook.rejected"
)

// Resource constants for audit events.
const (
	ResourceReservation = "reservation"
	ResourceCredit      = "credit"
	ResourcePayment     = "payment"
	ResourceWebhook     = "webhook"
)

// Category constants for audit events.
const (
	CategoryBooking     = "booking"
	CategoryLedger      = "ledger"
	CategoryPayment     = "payment"
	CategoryIntegration = "integration"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)
