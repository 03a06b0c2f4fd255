package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoreDocument は MongoDB 上での店舗スキーマ。契約条件は未設定なら欠損、明示的な 0 は 0 として保存する。
type StoreDocument struct {
	ID                    primitive.ObjectID `bson:"_id"`
	Name                  string             `bson:"name"`
	BranchName            string             `bson:"branchName,omitempty"`
	Area                  string             `bson:"area,omitempty"`
	PanelFee              *int               `bson:"panelFee,omitempty"`
	ChargePerPerson       *int               `bson:"chargePerPerson,omitempty"`
	GuaranteeCount        *int               `bson:"guaranteeCount,omitempty"`
	UnderGuaranteePenalty *int               `bson:"underGuaranteePenalty,omitempty"`
	MalePrice             *int               `bson:"malePrice,omitempty"`
	RemainingRequests     int                `bson:"remainingRequests"`
	CreatedAt             *time.Time         `bson:"createdAt,omitempty"`
	UpdatedAt             *time.Time         `bson:"updatedAt,omitempty"`
}

// VisitDocument は案内記録 1 件。guidedAt は常に UTC で保存する。
type VisitDocument struct {
	ID              primitive.ObjectID `bson:"_id"`
	StoreID         primitive.ObjectID `bson:"storeId"`
	GuestCount      int                `bson:"guestCount"`
	StaffName       string             `bson:"staffName,omitempty"`
	StaffType       string             `bson:"staffType"`
	GuidedAt        time.Time          `bson:"guidedAt"`
	ConsumedRequest bool               `bson:"consumedRequest"`
	RequestID       string             `bson:"requestId"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

// FailedNotificationDocument は送信に失敗した管理者通知を再送用に保持する。
type FailedNotificationDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Target      string             `bson:"target"`
	Payload     map[string]string  `bson:"payload"`
	Error       string             `bson:"error"`
	Attempts    int                `bson:"attempts"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	LastTriedAt time.Time          `bson:"lastTriedAt"`
}
