package services

import "errors"

// Ledger rejections. Each one is terminal for the request and leaves no
// partial state behind.
var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrConflictActiveCampaign = errors.New("an active campaign already exists")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrPlanEnded              = errors.New("plan has ended")
	ErrNotYetDue              = errors.New("contribution is not due yet")
	ErrInvalidAmount          = errors.New("invalid contribution amount")
	ErrCampaignNotComplete    = errors.New("campaign is not complete")
	ErrAlreadyPaidOut         = errors.New("campaign already paid out")
	ErrActiveCampaignExists   = errors.New("account has an active campaign")
	ErrEmptyVault             = errors.New("tax vault is empty")
	ErrVaultLocked            = errors.New("tax vault is locked")
)
