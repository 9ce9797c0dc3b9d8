package dynamo

// DynamoDB attribute names used in keys and update expressions.
const (
	fieldUserID       = "user_id"
	fieldEmail        = "email"
	fieldFullName     = "full_name"
	fieldPasswordHash = "password_hash"
	fieldVerified     = "user_verified"
	fieldUpdatedAt    = "updated_at"
	fieldID           = "id"
	fieldToken        = "token"
	fieldUsed         = "used"
	fieldUsedAt       = "used_at"
)
