package admin

import (
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

type adminStoreResponse struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	BranchName        string               `json:"branchName,omitempty"`
	Area              string               `json:"area,omitempty"`
	Terms             domain.OptionalTerms `json:"terms"`
	EffectiveTerms    domain.ContractTerms `json:"effectiveTerms"`
	MalePrice         *int                 `json:"malePrice"`
	AdmitsMales       bool                 `json:"admitsMales"`
	RemainingRequests int                  `json:"remainingRequests"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

type adminStoreCreateRequest struct {
	Name              string            `json:"name" validate:"required,max=100"`
	BranchName        string            `json:"branchName" validate:"max=100"`
	Area              string            `json:"area" validate:"max=100"`
	Terms             adminTermsPayload `json:"terms"`
	MalePrice         *int              `json:"malePrice" validate:"omitempty,gte=0"`
	RemainingRequests int               `json:"remainingRequests" validate:"gte=0"`
}

// adminTermsPayload は null と 0 を区別する。未指定は既定値、0 は「無し」。
type adminTermsPayload struct {
	PanelFee              *int `json:"panelFee" validate:"omitempty,gte=0"`
	ChargePerPerson       *int `json:"chargePerPerson" validate:"omitempty,gte=0"`
	GuaranteeCount        *int `json:"guaranteeCount" validate:"omitempty,gte=0"`
	UnderGuaranteePenalty *int `json:"underGuaranteePenalty" validate:"omitempty,gte=0"`
}

func (p adminTermsPayload) toDomain() domain.OptionalTerms {
	return domain.OptionalTerms{
		PanelFee:              p.PanelFee,
		ChargePerPerson:       p.ChargePerPerson,
		GuaranteeCount:        p.GuaranteeCount,
		UnderGuaranteePenalty: p.UnderGuaranteePenalty,
	}
}

type adminStoreCreateResponse struct {
	Store   adminStoreResponse `json:"store"`
	Created bool               `json:"created"`
}
