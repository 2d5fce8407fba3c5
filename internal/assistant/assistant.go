// Package assistant builds the financial coaching conversation and streams
// replies from a text-generation model. It only reads ledger state.
package assistant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"kosh/internal/money"
)

const (
	RoleUser  = "user"
	RoleModel = "model"

	// MaxHistory caps how many prior turns are replayed to the model.
	MaxHistory = 20
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrInvalidImage = errors.New("image must be a base64 data url")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Image struct {
	MIMEType string
	Data     []byte
}

type CompletedCampaign struct {
	Name        string
	AmountSaved decimal.Decimal
}

// Snapshot is the ledger state the coach is allowed to see.
type Snapshot struct {
	HealthScore        int
	WalletBalance      decimal.Decimal
	TaxBalance         decimal.Decimal
	WithholdRate       decimal.Decimal
	CompletedCampaigns []CompletedCampaign
}

type Request struct {
	Snapshot Snapshot
	History  []Message
	Message  string
	Image    *Image
}

type Coach interface {
	Stream(ctx context.Context, req Request, emit func(chunk string) error) error
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// SystemPrompt renders the coaching instructions with the user's numbers.
func SystemPrompt(s Snapshot) string {
	var b strings.Builder
	b.WriteString("You are KOSH, an intelligent financial coach for gig workers.\n\n")
	b.WriteString("USER FINANCIAL PROFILE:\n")
	fmt.Fprintf(&b, "- Financial Health Score: %d/100\n", s.HealthScore)
	fmt.Fprintf(&b, "- Available Wallet Balance: $%s\n", money.Format(s.WalletBalance))
	fmt.Fprintf(&b, "- Tax Vault (locked): $%s\n\n", money.Format(s.TaxBalance))
	b.WriteString("PAST SUCCESS:\n")
	if len(s.CompletedCampaigns) == 0 {
		b.WriteString("No completed savings plans yet (new user).\n")
	}
	for _, c := range s.CompletedCampaigns {
		fmt.Fprintf(&b, "- Successfully saved $%s for '%s'\n", money.Format(c.AmountSaved), c.Name)
	}
	b.WriteString("\nGUIDELINES:\n")
	if s.WithholdRate.IsPositive() {
		fmt.Fprintf(&b, "1. If the user asks about money or income, remind them that %s%% of every income is withheld into the tax vault ($%s so far) and must not be spent.\n",
			s.WithholdRate.Mul(decimal.NewFromInt(100)).String(), money.Format(s.TaxBalance))
	} else {
		b.WriteString("1. If the user asks about taxes, suggest setting money aside before spending.\n")
	}
	if len(s.CompletedCampaigns) > 0 {
		fmt.Fprintf(&b, "2. Use their past savings to motivate them, for example their '%s' plan.\n", s.CompletedCampaigns[0].Name)
	} else {
		b.WriteString("2. Encourage them to start a first savings plan.\n")
	}
	b.WriteString("3. If an image is uploaded, categorize the items as needs or wants.\n")
	b.WriteString("4. Keep responses short (max 3-4 sentences), upbeat and supportive.")
	return b.String()
}

// ParseDataURL decodes "data:<mime>;base64,<payload>".
func ParseDataURL(raw string) (*Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimSpace(raw), ",")
	if !ok || !strings.HasPrefix(meta, "data:") || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrInvalidImage
	}
	mimeType := strings.TrimSuffix(strings.TrimPrefix(meta, "data:"), ";base64")
	if mimeType == "" || !strings.Contains(mimeType, "/") {
		return nil, ErrInvalidImage
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, ErrInvalidImage
	}
	return &Image{MIMEType: mimeType, Data: data}, nil
}

func normalizeRole(role string) string {
	if role == RoleUser {
		return RoleUser
	}
	return RoleModel
}

func trimHistory(history []Message) []Message {
	if len(history) <= MaxHistory {
		return history
	}
	return history[len(history)-MaxHistory:]
}
