package model

import "time"

// Partner 合作机构。PartnershipStart 为空表示从未生效，
// 新人信用的机构门槛会直接排除该机构。
type Partner struct {
	ID               string    `json:"id"`
	DisplayName      string    `json:"displayName"`
	PartnershipStart string    `json:"partnershipStart"` // YYYY-MM，空串表示未生效
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type CreatePartnerRequest struct {
	DisplayName      string `json:"displayName" binding:"required"`
	PartnershipStart string `json:"partnershipStart"`
}

type UpdatePartnerRequest struct {
	DisplayName      *string `json:"displayName"`
	PartnershipStart *string `json:"partnershipStart"`
}
