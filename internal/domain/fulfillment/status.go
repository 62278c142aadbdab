package fulfillment

import "strings"

// LocalStatus is the storefront's customer-facing fulfillment state.
type LocalStatus string

const (
	LocalStatusProcessing LocalStatus = "processing"
	LocalStatusShipped    LocalStatus = "shipped"
	LocalStatusCancelled  LocalStatus = "cancelled"
	LocalStatusFailed     LocalStatus = "failed"
)

// Raw upstream status values as the upstream API spells them.
// The upstream vocabulary is wider than this list; unknown values are
// handled conservatively by Simplify.
const (
	RawStatusPendingFulfillment  = "Pending Fulfillment"
	RawStatusPendingBilling      = "Pending Billing"
	RawStatusAwaitingPayment     = "Awaiting Payment"
	RawStatusPartiallyFulfilled  = "Partially Fulfilled"
	RawStatusFulfillmentComplete = "Fulfillment Complete"
	RawStatusBilled              = "Billed"
	RawStatusCancelled           = "Cancelled"
	RawStatusVoid                = "Void"
	RawStatusOnHoldContactDesk   = "On Hold - Contact Desk"

	// RawStatusAddressFixed is a local sentinel written by the repair job
	// when the upstream update response omitted a status. It is the only
	// value in the upstream-status field that did not come from upstream.
	RawStatusAddressFixed = "Address Fixed - Verify Status"
)

// Simplify reduces the upstream status vocabulary to the storefront's
// customer-facing state. Tracking presence overrides the raw status:
// a carrier picked the order up, whatever the upstream workflow says.
// Unknown or new upstream statuses degrade to processing rather than
// surfacing an alarming state. Total: defined for every input.
func Simplify(rawStatus string, trackingNumbers []string) LocalStatus {
	if len(trackingNumbers) > 0 {
		return LocalStatusShipped
	}

	switch strings.ToLower(strings.TrimSpace(rawStatus)) {
	case "fulfillment complete", "partially fulfilled":
		return LocalStatusShipped
	case "cancelled", "canceled", "void":
		return LocalStatusCancelled
	case "error", "failed":
		return LocalStatusFailed
	default:
		// Includes "Pending Fulfillment", "Pending Billing",
		// "Awaiting Payment", "On Hold - Contact Desk" and anything new.
		return LocalStatusProcessing
	}
}
