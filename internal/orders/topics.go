package orders

const (
	TopicOrderCreated   = "order.created"
	TopicOrderPaid      = "order.paid"
	TopicPaymentFailed  = "order.payment.failed"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderRefunded  = "order.refunded"
	TopicOrderDelivered = "order.delivered"
	TopicOrderReceived  = "order.received"
)

// Partition key = order id, so every event of one order keeps its order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
