package user

import "time"

type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	// Payout details, agents only. RecipientCode is the gateway's handle
	// for the bank account, persisted after the first successful payout
	// recipient creation.
	BankCode      *string `db:"bank_code" json:"bank_code,omitempty"`
	AccountNumber *string `db:"account_number" json:"account_number,omitempty"`
	AccountName   *string `db:"account_name" json:"account_name,omitempty"`
	RecipientCode *string `db:"recipient_code" json:"-"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=customer agent"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type BankDetailsRequest struct {
	BankCode      string `json:"bank_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required,min=10,max=10"`
	AccountName   string `json:"account_name" binding:"required"`
}
