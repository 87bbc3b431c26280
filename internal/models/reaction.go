package models

import "time"

type ReactionType string

const (
	ReactionThumbsUp   ReactionType = "thumbs_up"
	ReactionThumbsDown ReactionType = "thumbs_down"
	ReactionHeart      ReactionType = "heart"
	ReactionJoy        ReactionType = "joy"
	ReactionOpenMouth  ReactionType = "open_mouth"
	ReactionCry        ReactionType = "cry"
	ReactionAngry      ReactionType = "angry"
	ReactionParty      ReactionType = "party"
	ReactionClap       ReactionType = "clap"
	ReactionFire       ReactionType = "fire"
)

// ReactionTypes lists the accepted kinds in display order.
var ReactionTypes = []ReactionType{
	ReactionThumbsUp,
	ReactionThumbsDown,
	ReactionHeart,
	ReactionJoy,
	ReactionOpenMouth,
	ReactionCry,
	ReactionAngry,
	ReactionParty,
	ReactionClap,
	ReactionFire,
}

var reactionGlyphs = map[ReactionType]string{
	ReactionThumbsUp:   "👍",
	ReactionThumbsDown: "👎",
	ReactionHeart:      "❤️",
	ReactionJoy:        "😂",
	ReactionOpenMouth:  "😮",
	ReactionCry:        "😢",
	ReactionAngry:      "😡",
	ReactionParty:      "🎉",
	ReactionClap:       "👏",
	ReactionFire:       "🔥",
}

func (t ReactionType) Valid() bool {
	_, ok := reactionGlyphs[t]
	return ok
}

// Glyph returns the display emoji, or "❓" for an unknown kind.
func (t ReactionType) Glyph() string {
	if g, ok := reactionGlyphs[t]; ok {
		return g
	}
	return "❓"
}

// ReactionTypeForGlyph maps an emoji back to its kind.
func ReactionTypeForGlyph(glyph string) (ReactionType, bool) {
	for t, g := range reactionGlyphs {
		if g == glyph {
			return t, true
		}
	}
	return "", false
}

type Reaction struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement"`
	MessageID    uint64       `gorm:"not null;uniqueIndex:ux_reaction,priority:1"`
	UserID       uint64       `gorm:"not null;uniqueIndex:ux_reaction,priority:2;index"`
	ReactionType ReactionType `gorm:"size:20;not null;uniqueIndex:ux_reaction,priority:3"`
	CreatedAt    time.Time

	User User `gorm:"foreignKey:UserID"`
}

type ReactionCount struct {
	Type  ReactionType `json:"type"`
	Glyph string       `json:"glyph"`
	Count int64        `json:"count"`
}
