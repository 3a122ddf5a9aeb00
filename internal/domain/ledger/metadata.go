package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Metadata is the per-reason payload attached to a transaction. Each reason
// has exactly one variant; the unexported method keeps the set closed.
type Metadata interface {
	Reason() Reason
	validate() error
}

type ReferralMeta struct {
	RefereeID int64 `json:"referee_id"`
}

type DailySpinMeta struct {
	PrizeLabel string `json:"prize_label"`
}

type DailyLoginMeta struct {
	Streak int    `json:"streak"`
	Date   string `json:"date,omitempty"`
}

type WalletConnectMeta struct {
	Address string `json:"address"`
}

type ChannelJoinMeta struct {
	ChannelID string `json:"channel_id,omitempty"`
}

type PredictionWinMeta struct {
	MarketID string `json:"market_id,omitempty"`
}

type AdminAdjustmentMeta struct {
	Note    string `json:"note,omitempty"`
	AdminID int64  `json:"admin_id,omitempty"`
}

type WelcomeBonusMeta struct{}

type EducationCompleteMeta struct {
	ModuleID string `json:"module_id"`
	BadgeID  string `json:"badge_id,omitempty"`
}

func (ReferralMeta) Reason() Reason          { return ReasonReferral }
func (DailySpinMeta) Reason() Reason         { return ReasonDailySpin }
func (DailyLoginMeta) Reason() Reason        { return ReasonDailyLogin }
func (WalletConnectMeta) Reason() Reason     { return ReasonWalletConnect }
func (ChannelJoinMeta) Reason() Reason       { return ReasonChannelJoin }
func (PredictionWinMeta) Reason() Reason     { return ReasonPredictionWin }
func (AdminAdjustmentMeta) Reason() Reason   { return ReasonAdminAdjustment }
func (WelcomeBonusMeta) Reason() Reason      { return ReasonWelcomeBonus }
func (EducationCompleteMeta) Reason() Reason { return ReasonEducationComplete }

func (m ReferralMeta) validate() error {
	if m.RefereeID <= 0 {
		return fmt.Errorf("referee_id must be positive")
	}
	return nil
}

func (m DailySpinMeta) validate() error {
	if strings.TrimSpace(m.PrizeLabel) == "" {
		return fmt.Errorf("prize_label is required")
	}
	return nil
}

func (m DailyLoginMeta) validate() error {
	if m.Streak < 1 {
		return fmt.Errorf("streak must be at least 1")
	}
	return nil
}

func (m WalletConnectMeta) validate() error {
	if strings.TrimSpace(m.Address) == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}

func (ChannelJoinMeta) validate() error   { return nil }
func (PredictionWinMeta) validate() error { return nil }
func (m AdminAdjustmentMeta) validate() error {
	if len(m.Note) > 500 {
		return fmt.Errorf("note is too long")
	}
	return nil
}
func (WelcomeBonusMeta) validate() error { return nil }

func (m EducationCompleteMeta) validate() error {
	if strings.TrimSpace(m.ModuleID) == "" {
		return fmt.Errorf("module_id is required")
	}
	return nil
}

// DefaultMetadata returns the zero variant for reasons whose payload has no
// required fields, and nil otherwise.
func DefaultMetadata(r Reason) Metadata {
	switch r {
	case ReasonWelcomeBonus:
		return WelcomeBonusMeta{}
	case ReasonChannelJoin:
		return ChannelJoinMeta{}
	case ReasonPredictionWin:
		return PredictionWinMeta{}
	case ReasonAdminAdjustment:
		return AdminAdjustmentMeta{}
	}
	return nil
}

// ValidateMetadata checks that m is the variant belonging to r and that its
// fields are well formed.
func ValidateMetadata(r Reason, m Metadata) error {
	if m == nil {
		return fmt.Errorf("%w: metadata is required for %s", ErrInvalidMetadata, r)
	}
	if m.Reason() != r {
		return fmt.Errorf("%w: %s metadata given for %s", ErrInvalidMetadata, m.Reason(), r)
	}
	if err := m.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return nil
}

// EncodeMetadata serializes m for storage.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// DecodeMetadata restores the variant for r from its stored JSON form.
func DecodeMetadata(r Reason, raw []byte) (Metadata, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch r {
	case ReasonReferral:
		return decode[ReferralMeta](raw)
	case ReasonDailySpin:
		return decode[DailySpinMeta](raw)
	case ReasonDailyLogin:
		return decode[DailyLoginMeta](raw)
	case ReasonWalletConnect:
		return decode[WalletConnectMeta](raw)
	case ReasonChannelJoin:
		return decode[ChannelJoinMeta](raw)
	case ReasonPredictionWin:
		return decode[PredictionWinMeta](raw)
	case ReasonAdminAdjustment:
		return decode[AdminAdjustmentMeta](raw)
	case ReasonWelcomeBonus:
		return decode[WelcomeBonusMeta](raw)
	case ReasonEducationComplete:
		return decode[EducationCompleteMeta](raw)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownReason, string(r))
}

func decode[T Metadata](raw []byte) (Metadata, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return v, nil
}
