package dynamo

// DynamoDB attribute names used in update expressions and key conditions.
const (
	fieldUserID       = "user_id"
	fieldEmail        = "email"
	fieldVerified     = "is_verified"
	fieldPasswordHash = "password_hash"
	fieldUpdatedAt    = "updated_at"

	indexEmail = "email-index"
)
