package realtime

type EventType string

const (
	EventNewPendingReport       EventType = "NEW_PENDING_REPORT"
	EventReportApproved         EventType = "REPORT_APPROVED"
	EventReportRejected         EventType = "REPORT_REJECTED"
	EventNewItemApproved        EventType = "NEW_ITEM_APPROVED"
	EventYourReportStatusUpdate EventType = "YOUR_REPORT_STATUS_UPDATE"
	EventFoundItemStatusUpdated EventType = "FOUND_ITEM_STATUS_UPDATED"
	EventLostItemStatusUpdated  EventType = "LOST_ITEM_STATUS_UPDATED"
	EventFoundItemDeleted       EventType = "FOUND_ITEM_DELETED"
	EventLostItemDeleted        EventType = "LOST_ITEM_DELETED"
	EventNewFoundItem           EventType = "NEW_FOUND_ITEM"
	EventNewLostItem            EventType = "NEW_LOST_ITEM"
)

// Event is the envelope every client receives.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// Notifier fans events out to connected clients. Delivery is best effort:
// implementations never block on, or report errors from, a single client.
type Notifier interface {
	BroadcastAll(event Event)
	BroadcastToAdmins(event Event)
	SendToUser(email string, event Event)
}
