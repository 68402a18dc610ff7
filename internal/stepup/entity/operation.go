package entity

const (
	OperationUpdatePassword = 101
	OperationSendReport     = 102
	OperationMakeTransfer   = 103
)

type Operation struct {
	Number      int
	Name        string
	Description string
}

// User is the subset of the account the step-up flow needs.
type User struct {
	ID             int64
	Username       string
	Email          string
	Phone          string
	TelegramChatID string
}

// Result values reported by operation handlers.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)
