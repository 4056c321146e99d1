package orders

// All lifecycle events share one topic: cross-topic consumption has no
// ordering guarantee, and the status cache depends on seeing one order's
// events in publish order.
const TopicOrderEvents = "bookstore.order.events"

// Partition key = order_id, so one order's events keep their relative order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
