package constants

// Queue names
const (
	QueueScrapedRecords = "scraped_records"
)

// Exchanges and routing keys
const (
	ReidExchange = "reid_exchange"

	RoutingKeyScrapedRecords  = "reid.records.reconcile"
	RoutingKeyReconcileResult = "notify.reconcile.result"
)

const (
	FinalDLXExchange   = "scraped_records_final_dlx"
	FinalDLQ           = "scraped_records_final_dlq"
	FinalDLQRoutingKey = "records.dlq.key"
)
