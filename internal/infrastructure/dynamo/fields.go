package dynamo

// DynamoDB attribute and index names shared by the repos and Bootstrap.
const (
	fieldMessageID = "message_id"
	fieldAudience  = "audience"
	fieldRead      = "read"
	fieldSessionID = "session_id"
	fieldUserID    = "user_id"
	fieldExpiresAt = "expires_at"

	indexUserID = "user_id-index"
)
