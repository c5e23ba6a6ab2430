// Package models holds the persisted entities of the authentication and
// transfer core: users, credentials, devices, tokens, wallets, and the
// double-entry ledger.
package models

import "time"

type User struct {
	ID                      string     `db:"id" json:"id"`
	Email                   string     `db:"email" json:"email"`
	FirstName               *string    `db:"first_name" json:"firstName,omitempty"`
	LastName                *string    `db:"last_name" json:"lastName,omitempty"`
	PasswordHash            *string    `db:"password_hash" json:"-"`
	EmailVerified           bool       `db:"email_verified" json:"emailVerified"`
	VerificationRequestedAt *time.Time `db:"verification_requested_at" json:"-"`
	CreatedAt               time.Time  `db:"created_at" json:"createdAt"`
}

type Credential struct {
	CredentialID string    `db:"credential_id" json:"credentialId"`
	UserID       string    `db:"user_id" json:"userId"`
	PublicKey    []byte    `db:"public_key" json:"-"`
	SignCount    uint32    `db:"sign_count" json:"signCount"`
	AAGUID       *string   `db:"aaguid" json:"aaguid,omitempty"`
	Transports   *string   `db:"transports" json:"transports,omitempty"` // comma-joined
	DeviceName   *string   `db:"device_name" json:"deviceName,omitempty"`
	Revoked      bool      `db:"revoked" json:"revoked"`
	RevokedAt    *time.Time `db:"revoked_at" json:"revokedAt,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type Device struct {
	ID                string     `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"userId"`
	CredentialID      string     `db:"credential_id" json:"credentialId"`
	Label             *string    `db:"label" json:"label,omitempty"`
	Active            bool       `db:"active" json:"active"`
	DeactivatedAt     *time.Time `db:"deactivated_at" json:"deactivatedAt,omitempty"`
	DeactivatedReason *string    `db:"deactivated_reason" json:"deactivatedReason,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"createdAt"`
}

type RefreshToken struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"userId"`
	TokenHash string    `db:"token_hash" json:"-"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
	Revoked   bool      `db:"revoked" json:"revoked"`
}

type PendingTokenKind string

const (
	PendingTokenEmailVerification PendingTokenKind = "email_verification"
	PendingTokenPasswordReset     PendingTokenKind = "password_reset"
)

type PendingToken struct {
	ID         string           `db:"id" json:"id"`
	UserID     string           `db:"user_id" json:"userId"`
	Kind       PendingTokenKind `db:"kind" json:"kind"`
	TokenHash  string           `db:"token_hash" json:"-"`
	ExpiresAt  time.Time        `db:"expires_at" json:"expiresAt"`
	ConsumedAt *time.Time       `db:"consumed_at" json:"consumedAt,omitempty"`
}

type WalletStatus string

const (
	WalletActive WalletStatus = "ACTIVE"
	WalletBlocked WalletStatus = "BLOCKED"
	WalletClosed  WalletStatus = "CLOSED"
)

type Wallet struct {
	ID                   string       `db:"id" json:"id"`
	UserID               string       `db:"user_id" json:"userId"`
	Currency             string       `db:"currency" json:"currency"`
	Status               WalletStatus `db:"status" json:"status"`
	AvailableBalanceMinor int64       `db:"available_balance_minor" json:"availableBalanceMinor"`
}

type TransactionType string

const TransactionP2PTransfer TransactionType = "P2P_TRANSFER"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

type WalletTransaction struct {
	ID              string            `db:"id" json:"id"`
	Type            TransactionType   `db:"type" json:"type"`
	Status          TransactionStatus `db:"status" json:"status"`
	FromWalletID    string            `db:"from_wallet_id" json:"fromWalletId"`
	ToWalletID      string            `db:"to_wallet_id" json:"toWalletId"`
	AmountMinor     int64             `db:"amount_minor" json:"amountMinor"`
	FeeMinor        int64             `db:"fee_minor" json:"feeMinor"`
	Currency        string            `db:"currency" json:"currency"`
	Note            *string           `db:"note" json:"note,omitempty"`
	ClientReference *string           `db:"client_reference" json:"clientReference,omitempty"`
	StepUpUsed      bool              `db:"step_up_used" json:"stepUpUsed"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	CompletedAt     *time.Time        `db:"completed_at" json:"completedAt,omitempty"`
}

type LedgerDirection string

const (
	LedgerDebit  LedgerDirection = "DEBIT"
	LedgerCredit LedgerDirection = "CREDIT"
)

type WalletLedgerEntry struct {
	ID                string          `db:"id" json:"id"`
	TransactionID     string          `db:"transaction_id" json:"transactionId"`
	WalletID          string          `db:"wallet_id" json:"walletId"`
	Direction         LedgerDirection `db:"direction" json:"direction"`
	AmountMinor       int64           `db:"amount_minor" json:"amountMinor"`
	BalanceAfterMinor int64           `db:"balance_after_minor" json:"balanceAfterMinor"`
}
