package dto

// TransferRequest is the request body for a wallet-to-wallet transfer.
type TransferRequest struct {
	WalletNumber string `json:"wallet_number" binding:"required,len=13,numeric"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
}

// DepositRequest is the request body for initializing a deposit.
type DepositRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// CreateKeyRequest is the request body for issuing an API key.
type CreateKeyRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=100,safe_name"`
	Permissions []string `json:"permissions" binding:"required,min=1"`
	ExpiresIn   string   `json:"expires_in" binding:"required"`
}

// RolloverKeyRequest is the request body for rolling over an expired API key.
type RolloverKeyRequest struct {
	ExpiredKeyID string `json:"expired_key_id" binding:"required,uuid"`
	ExpiresIn    string `json:"expires_in" binding:"required"`
}

// TransactionListQuery captures pagination parameters for ledger history.
type TransactionListQuery struct {
	Page  int `form:"page,default=1" binding:"gte=1"`
	Limit int `form:"limit,default=20" binding:"gte=1,lte=100"`
}
