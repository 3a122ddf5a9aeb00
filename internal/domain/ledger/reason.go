package ledger

import (
	"fmt"
	"sort"
)

// Reason is the closed set of causes a ledger transaction can carry.
type Reason string

const (
	ReasonReferral          Reason = "referral"
	ReasonDailySpin         Reason = "daily_spin"
	ReasonDailyLogin        Reason = "daily_login"
	ReasonWalletConnect     Reason = "wallet_connect"
	ReasonChannelJoin       Reason = "channel_join"
	ReasonPredictionWin     Reason = "prediction_win"
	ReasonAdminAdjustment   Reason = "admin_adjustment"
	ReasonWelcomeBonus      Reason = "welcome_bonus"
	ReasonEducationComplete Reason = "education_complete"
)

type reasonInfo struct {
	label   string
	oneTime bool
}

// reasons is the single registry of known reasons. Adding a reason means
// adding a constant, an entry here and a metadata variant.
var reasons = map[Reason]reasonInfo{
	ReasonReferral:          {label: "Referrals"},
	ReasonDailySpin:         {label: "Daily Spin"},
	ReasonDailyLogin:        {label: "Daily Login"},
	ReasonWalletConnect:     {label: "Wallet Connect", oneTime: true},
	ReasonChannelJoin:       {label: "Channel Join", oneTime: true},
	ReasonPredictionWin:     {label: "Prediction Win"},
	ReasonAdminAdjustment:   {label: "Admin Adjustment"},
	ReasonWelcomeBonus:      {label: "Welcome Bonus", oneTime: true},
	ReasonEducationComplete: {label: "Education"},
}

// ParseReason converts a wire value into a Reason, rejecting unknown values.
func ParseReason(s string) (Reason, error) {
	r := Reason(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownReason, s)
	}
	return r, nil
}

// Valid reports whether r is a member of the enum.
func (r Reason) Valid() bool {
	_, ok := reasons[r]
	return ok
}

// Label is the human readable name used by analytics.
func (r Reason) Label() string {
	if info, ok := reasons[r]; ok {
		return info.label
	}
	return string(r)
}

// OneTime reports whether the reason may produce at most one award per user.
func (r Reason) OneTime() bool {
	return reasons[r].oneTime
}

func (r Reason) String() string { return string(r) }

// Reasons returns every known reason in lexical order.
func Reasons() []Reason {
	out := make([]Reason, 0, len(reasons))
	for r := range reasons {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LabelFor returns the display label for a stored reason string. Reasons that
// are no longer part of the enum keep their raw value.
func LabelFor(raw string) string {
	return Reason(raw).Label()
}
