package dto

type CreateGroupRequest struct {
	Name      string   `json:"name" binding:"required"`
	MemberIDs []uint64 `json:"member_ids"`
}

type RenameGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

type AddMemberRequest struct {
	UserID uint64 `json:"user_id" binding:"required"`
}
