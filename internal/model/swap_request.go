package model

// ── 交换申请状态 ──

const (
	// SwapStatusPending 待响应
	SwapStatusPending = "PENDING"
	// SwapStatusAccepted 已接受（终态）
	SwapStatusAccepted = "ACCEPTED"
	// SwapStatusRejected 已拒绝（终态）
	SwapStatusRejected = "REJECTED"
	// SwapStatusCancelled 已取消（终态；申请人撤回或级联失效）
	SwapStatusCancelled = "CANCELLED"
)

// SwapTerminal 判断交换申请状态是否为终态
// 终态申请不可再变更，仅作为审计记录保留
func SwapTerminal(status string) bool {
	switch status {
	case SwapStatusAccepted, SwapStatusRejected, SwapStatusCancelled:
		return true
	}
	return false
}

// SwapRequest 交换申请表，对应 swap_requests
// 申请记录永不删除；解决后保留为审计记录
type SwapRequest struct {
	SwapRequestID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"swap_request_id"`
	RequesterID   string `gorm:"type:uuid;not null;index"                       json:"requester_id"`
	ResponderID   string `gorm:"type:uuid;not null;index"                       json:"responder_id"`
	MySlotID      string `gorm:"type:uuid;not null;index"                       json:"my_slot_id"`
	TheirSlotID   string `gorm:"type:uuid;not null;index"                       json:"their_slot_id"`
	Status        string `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"status"` // PENDING | ACCEPTED | REJECTED | CANCELLED
	VersionedModel

	// 关联
	Requester *User `gorm:"foreignKey:RequesterID;references:UserID" json:"requester,omitempty"`
	Responder *User `gorm:"foreignKey:ResponderID;references:UserID" json:"responder,omitempty"`
	MySlot    *Slot `gorm:"foreignKey:MySlotID;references:SlotID"    json:"my_slot,omitempty"`
	TheirSlot *Slot `gorm:"foreignKey:TheirSlotID;references:SlotID" json:"their_slot,omitempty"`
}

// TableName 指定表名
func (SwapRequest) TableName() string { return "swap_requests" }
