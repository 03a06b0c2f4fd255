package domain

// OptionalTerms carries contract fields as stored: nil means the field was never set,
// a pointer to 0 is an explicit zero and must survive resolution.
type OptionalTerms struct {
	PanelFee              *int `json:"panelFee,omitempty" yaml:"panelFee,omitempty"`
	ChargePerPerson       *int `json:"chargePerPerson,omitempty" yaml:"chargePerPerson,omitempty"`
	GuaranteeCount        *int `json:"guaranteeCount,omitempty" yaml:"guaranteeCount,omitempty"`
	UnderGuaranteePenalty *int `json:"underGuaranteePenalty,omitempty" yaml:"underGuaranteePenalty,omitempty"`
}

// DefaultTerms are used for fields a store never configured.
var DefaultTerms = ContractTerms{
	PanelFee:              30000,
	ChargePerPerson:       1000,
	GuaranteeCount:        0,
	UnderGuaranteePenalty: 0,
}

// Resolve substitutes defaults for absent fields only. Negative values are rejected, not replaced.
func (o OptionalTerms) Resolve(defaults ContractTerms) (ContractTerms, error) {
	terms := ContractTerms{
		PanelFee:              valueOr(o.PanelFee, defaults.PanelFee),
		ChargePerPerson:       valueOr(o.ChargePerPerson, defaults.ChargePerPerson),
		GuaranteeCount:        valueOr(o.GuaranteeCount, defaults.GuaranteeCount),
		UnderGuaranteePenalty: valueOr(o.UnderGuaranteePenalty, defaults.UnderGuaranteePenalty),
	}
	if err := terms.Validate(); err != nil {
		return ContractTerms{}, err
	}
	return terms, nil
}

// Merge overlays the fields present in patch onto o.
func (o OptionalTerms) Merge(patch OptionalTerms) OptionalTerms {
	merged := o
	if patch.PanelFee != nil {
		merged.PanelFee = IntPtr(*patch.PanelFee)
	}
	if patch.ChargePerPerson != nil {
		merged.ChargePerPerson = IntPtr(*patch.ChargePerPerson)
	}
	if patch.GuaranteeCount != nil {
		merged.GuaranteeCount = IntPtr(*patch.GuaranteeCount)
	}
	if patch.UnderGuaranteePenalty != nil {
		merged.UnderGuaranteePenalty = IntPtr(*patch.UnderGuaranteePenalty)
	}
	return merged
}

// Validate rejects negative values among the present fields.
func (o OptionalTerms) Validate() error {
	checks := []struct {
		field string
		value *int
	}{
		{"panelFee", o.PanelFee},
		{"chargePerPerson", o.ChargePerPerson},
		{"guaranteeCount", o.GuaranteeCount},
		{"underGuaranteePenalty", o.UnderGuaranteePenalty},
	}
	for _, c := range checks {
		if c.value != nil && *c.value < 0 {
			return invalidField(c.field, "must be >= 0")
		}
	}
	return nil
}

// IsEmpty reports whether no field is present.
func (o OptionalTerms) IsEmpty() bool {
	return o.PanelFee == nil && o.ChargePerPerson == nil && o.GuaranteeCount == nil && o.UnderGuaranteePenalty == nil
}

// IntPtr returns a pointer to a copy of v.
func IntPtr(v int) *int {
	return &v
}

func valueOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}
