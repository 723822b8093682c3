package constants

const (
	MigrationLock = iota + 7100
	TrackingSyncLock
)

var Locks = []int{
	MigrationLock,
	TrackingSyncLock,
}

const (
	DefaultStoreID = 1

	// ClaimBatchSize is how many due entries one claim round takes.
	ClaimBatchSize = 25
	// MaxProcessedPerRun caps a single process_queue invocation.
	MaxProcessedPerRun = 100

	DefaultListLimit = 50
	MaxListLimit     = 100

	MaxFulfillmentBatch = 50
)

// Event routing keys published to the message broker.
const (
	EventImportCompleted = "import.completed"
	EventImportFailed    = "import.failed"
	EventOrderFulfilled  = "order.fulfilled"
)
