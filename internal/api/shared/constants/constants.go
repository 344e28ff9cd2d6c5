package constants

const (
	MAX_PAGE_SIZE        = 100
	DEFAULT_TOKENS_LIMIT = 20
	DEFAULT_OFFSET       = uint64(0)
	SERVICE_NAME         = "ff-ledger-api"
)
