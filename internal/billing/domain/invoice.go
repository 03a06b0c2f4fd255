package domain

import "github.com/shopspring/decimal"

// ShortfallRate is the per-head yen charged for each guest short of the guarantee.
// It is independent of the store's charge per person.
const ShortfallRate = 3000

var taxRate = decimal.New(10, -2)

// ContractTerms is a store's resolved billing configuration. All fields are yen or counts >= 0.
type ContractTerms struct {
	PanelFee              int `json:"panelFee"`
	ChargePerPerson       int `json:"chargePerPerson"`
	GuaranteeCount        int `json:"guaranteeCount"`
	UnderGuaranteePenalty int `json:"underGuaranteePenalty"`
}

// Validate rejects negative fields.
func (t ContractTerms) Validate() error {
	if t.PanelFee < 0 {
		return invalidField("panelFee", "must be >= 0")
	}
	if t.ChargePerPerson < 0 {
		return invalidField("chargePerPerson", "must be >= 0")
	}
	if t.GuaranteeCount < 0 {
		return invalidField("guaranteeCount", "must be >= 0")
	}
	if t.UnderGuaranteePenalty < 0 {
		return invalidField("underGuaranteePenalty", "must be >= 0")
	}
	return nil
}

// PanelFeeWaived reports the waived-panel contract mode.
func (t ContractTerms) PanelFeeWaived() bool {
	return t.PanelFee == 0
}

// Invoice is the itemized monthly bill. Every line is rendered by the statement view.
type Invoice struct {
	PanelFee              int  `json:"panelFee"`
	ChargePerPerson       int  `json:"chargePerPerson"`
	GuestCount            int  `json:"guestCount"`
	ReferralCharge        int  `json:"referralCharge"`
	IsPanelFeeWaived      bool `json:"isPanelFeeWaived"`
	IsUnderGuarantee      bool `json:"isUnderGuarantee"`
	GuaranteeCount        int  `json:"guaranteeCount"`
	ShortfallCount        int  `json:"shortfallCount"`
	ShortfallCharge       int  `json:"shortfallCharge"`
	UnderGuaranteePenalty int  `json:"underGuaranteePenalty"`
	Subtotal              int  `json:"subtotal"`
	Tax                   int  `json:"tax"`
	Total                 int  `json:"total"`
}

// ComputeInvoice computes the itemized invoice for guestCount guests under terms.
// The subtotal is not clamped and may be negative when the penalty exceeds the charges.
func ComputeInvoice(terms ContractTerms, guestCount int) (Invoice, error) {
	if err := terms.Validate(); err != nil {
		return Invoice{}, err
	}
	if guestCount < 0 {
		return Invoice{}, invalidField("guestCount", "must be >= 0")
	}

	inv := Invoice{
		PanelFee:         terms.PanelFee,
		ChargePerPerson:  terms.ChargePerPerson,
		GuestCount:       guestCount,
		ReferralCharge:   guestCount * terms.ChargePerPerson,
		IsPanelFeeWaived: terms.PanelFeeWaived(),
		GuaranteeCount:   terms.GuaranteeCount,
	}

	if inv.IsPanelFeeWaived {
		// 掲載料免除の店舗は保証人数を下回っても不足扱いにしない。
		inv.Subtotal = inv.ReferralCharge
	} else {
		inv.IsUnderGuarantee = guestCount < terms.GuaranteeCount
		inv.Subtotal = terms.PanelFee + inv.ReferralCharge
		if inv.IsUnderGuarantee {
			inv.ShortfallCount = terms.GuaranteeCount - guestCount
			inv.ShortfallCharge = inv.ShortfallCount * ShortfallRate
			inv.UnderGuaranteePenalty = terms.UnderGuaranteePenalty
			inv.Subtotal -= terms.UnderGuaranteePenalty + inv.ShortfallCharge
		}
	}

	inv.Tax = computeTax(inv.Subtotal)
	inv.Total = inv.Subtotal + inv.Tax
	return inv, nil
}

// computeTax floors subtotal*10% toward negative infinity.
func computeTax(subtotal int) int {
	return int(decimal.NewFromInt(int64(subtotal)).Mul(taxRate).Floor().IntPart())
}
