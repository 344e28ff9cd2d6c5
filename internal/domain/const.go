package domain

const (
	// Issuance constants
	MAX_ISSUE_QUANTITY = 1000
	DENOMINATION_SCALE = 2
	MIN_DENOMINATION   = "0.01"

	// Bulk constants
	MAX_BULK_TOKEN_IDS = 1000

	// Event constants
	EVENT_SCHEMA_VERSION = 1

	// Audit metadata keys
	AUDIT_KEY_REASON         = "reason"
	AUDIT_KEY_TRANSACTION_ID = "transaction_id"
	AUDIT_KEY_ISSUER         = "issuer"
	AUDIT_KEY_SERIES         = "series"
	AUDIT_KEY_BULK           = "bulk"
)
