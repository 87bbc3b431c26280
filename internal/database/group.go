package database

import (
	"context"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thereayou/voxus-chat/internal/apperr"
	"github.com/thereayou/voxus-chat/internal/models"
)

const maxGroupName = 100

func normalizeGroupName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("group name is required")
	}
	if utf8.RuneCountInString(name) > maxGroupName {
		return "", apperr.Validation("group name too long (max %d characters)", maxGroupName)
	}
	return name, nil
}

// CreateGroup inserts the group, the creator's membership and one membership
// per requested user that exists, all in one transaction. Unknown user ids are
// skipped; any write failure leaves no trace of the group.
func (d *Database) CreateGroup(ctx context.Context, name string, creatorID uint64, memberIDs []uint64) (*models.Group, error) {
	name, err := normalizeGroupName(name)
	if err != nil {
		return nil, err
	}

	var group models.Group
	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var creator models.User
		if err := tx.First(&creator, "id = ?", creatorID).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		group = models.Group{Name: name, CreatorID: creatorID, CreatedAt: now}
		if err := tx.Omit("Creator").Create(&group).Error; err != nil {
			return err
		}

		requested := make([]uint64, 0, len(memberIDs))
		seen := map[uint64]bool{creatorID: true}
		for _, id := range memberIDs {
			if id != 0 && !seen[id] {
				seen[id] = true
				requested = append(requested, id)
			}
		}

		var valid []uint64
		if len(requested) > 0 {
			if err := tx.Model(&models.User{}).Where("id IN ?", requested).Pluck("id", &valid).Error; err != nil {
				return err
			}
		}
		sort.Slice(valid, func(i, j int) bool { return valid[i] < valid[j] })

		members := make([]models.GroupMember, 0, len(valid)+1)
		members = append(members, models.GroupMember{GroupID: group.ID, UserID: creatorID, JoinedAt: now})
		for _, id := range valid {
			members = append(members, models.GroupMember{GroupID: group.ID, UserID: id, JoinedAt: now})
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		d.log.Sugar().Warnw("create_group_rolled_back", "creator_id", creatorID, "error", err)
		return nil, translate("create group", err)
	}
	return &group, nil
}

func (d *Database) IsMember(ctx context.Context, groupID, userID uint64) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate("membership", err)
	}
	return count > 0, nil
}

func (d *Database) GroupExists(ctx context.Context, groupID uint64) (bool, error) {
	var count int64
	err := d.db.WithContext(ctx).Model(&models.Group{}).
		Where("id = ?", groupID).
		Count(&count).Error
	if err != nil {
		return false, translate("group", err)
	}
	return count > 0, nil
}

// MembersOf lists member ids in join order.
func (d *Database) MembersOf(ctx context.Context, groupID uint64) ([]uint64, error) {
	var ids []uint64
	err := d.db.WithContext(ctx).Model(&models.GroupMember{}).
		Where("group_id = ?", groupID).
		Order("joined_at ASC").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, translate("group members", err)
	}
	return ids, nil
}

func (d *Database) GroupMembers(ctx context.Context, groupID uint64) ([]models.GroupMemberInfo, error) {
	var members []models.GroupMemberInfo
	err := d.db.WithContext(ctx).Table("group_members AS gm").
		Select("gm.user_id, u.username, gm.joined_at").
		Joins("JOIN users u ON u.id = gm.user_id").
		Where("gm.group_id = ?", groupID).
		Order("gm.joined_at ASC").
		Order("gm.user_id ASC").
		Scan(&members).Error
	if err != nil {
		return nil, translate("group members", err)
	}
	return members, nil
}

const groupSummaryColumns = `g.id, g.name, g.creator_id, u.username AS creator_name, g.created_at,
	(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id) AS member_count`

// GroupsOf returns the groups userID belongs to, newest first.
func (d *Database) GroupsOf(ctx context.Context, userID uint64) ([]models.GroupSummary, error) {
	var groups []models.GroupSummary
	err := d.db.WithContext(ctx).Table("chat_groups AS g").
		Select(groupSummaryColumns+", gm.joined_at").
		Joins("JOIN group_members gm ON gm.group_id = g.id AND gm.user_id = ?", userID).
		Joins("LEFT JOIN users u ON u.id = g.creator_id").
		Order("g.created_at DESC").
		Order("g.id DESC").
		Scan(&groups).Error
	if err != nil {
		return nil, translate("user groups", err)
	}
	return groups, nil
}

// AvailableGroups lists groups userID is not a member of.
func (d *Database) AvailableGroups(ctx context.Context, userID uint64) ([]models.GroupSummary, error) {
	memberOf := d.db.Model(&models.GroupMember{}).Select("group_id").Where("user_id = ?", userID)

	var groups []models.GroupSummary
	err := d.db.WithContext(ctx).Table("chat_groups AS g").
		Select(groupSummaryColumns).
		Joins("LEFT JOIN users u ON u.id = g.creator_id").
		Where("g.id NOT IN (?)", memberOf).
		Order("g.created_at DESC").
		Order("g.id DESC").
		Scan(&groups).Error
	if err != nil {
		return nil, translate("available groups", err)
	}
	return groups, nil
}

func (d *Database) GetGroup(ctx context.Context, groupID uint64) (*models.GroupSummary, error) {
	var groups []models.GroupSummary
	err := d.db.WithContext(ctx).Table("chat_groups AS g").
		Select(groupSummaryColumns).
		Joins("LEFT JOIN users u ON u.id = g.creator_id").
		Where("g.id = ?", groupID).
		Limit(1).
		Scan(&groups).Error
	if err != nil {
		return nil, translate("group", err)
	}
	if len(groups) == 0 {
		return nil, apperr.NotFound("group")
	}
	return &groups[0], nil
}

// requireCreator loads the group inside tx and checks requester created it.
func requireCreator(tx *gorm.DB, groupID, requester uint64, action string) (*models.Group, error) {
	var group models.Group
	if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
		return nil, err
	}
	if group.CreatorID != requester {
		return nil, apperr.Authorization("only the group creator can %s", action)
	}
	return &group, nil
}

func (d *Database) RenameGroup(ctx context.Context, groupID, requester uint64, name string) error {
	name, err := normalizeGroupName(name)
	if err != nil {
		return err
	}

	err = d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireCreator(tx, groupID, requester, "rename the group"); err != nil {
			return err
		}
		return tx.Model(&models.Group{}).Where("id = ?", groupID).Update("name", name).Error
	})
	return translate("group", err)
}

// DeleteGroup removes the group, its memberships and its messages (with their
// reactions and attachment rows). Removed attachments are returned for file
// cleanup.
func (d *Database) DeleteGroup(ctx context.Context, groupID, requester uint64) ([]models.Attachment, error) {
	var removed []models.Attachment

	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireCreator(tx, groupID, requester, "delete the group"); err != nil {
			return err
		}

		groupMessages := tx.Model(&models.Message{}).Select("id").Where("group_id = ?", groupID)

		if err := tx.Where("message_id IN (?)", groupMessages).Find(&removed).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", groupMessages).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", groupMessages).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, "id = ?", groupID).Error
	})
	if err != nil {
		return nil, translate("group", err)
	}
	return removed, nil
}

// AddMember lets the creator add an existing user. Adding a current member is
// a no-op.
func (d *Database) AddMember(ctx context.Context, groupID, requester, userID uint64) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireCreator(tx, groupID, requester, "add members"); err != nil {
			return err
		}
		var user models.User
		if err := tx.First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		member := models.GroupMember{GroupID: groupID, UserID: userID, JoinedAt: time.Now().UTC()}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
	})
	return translate("group member", err)
}

// RemoveMember removes userID from the group. The creator may remove anyone
// but itself; other members may only remove themselves.
func (d *Database) RemoveMember(ctx context.Context, groupID, requester, userID uint64) error {
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, "id = ?", groupID).Error; err != nil {
			return err
		}
		if userID == group.CreatorID {
			return apperr.Validation("the group creator cannot leave the group")
		}
		if requester != group.CreatorID && requester != userID {
			return apperr.Authorization("only the group creator can remove other members")
		}

		res := tx.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&models.GroupMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("group member")
		}
		return nil
	})
	return translate("group", err)
}
