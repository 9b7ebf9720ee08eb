package model

import (
	"time"

	"gorm.io/datatypes"
)

// BattleLogEntry is one persisted line of a battle journal.
type BattleLogEntry struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	BattleID  string         `gorm:"index:idx_battlelog_battle;size:36;not null" json:"battle_id"`
	Seq       int64          `gorm:"index:idx_battlelog_battle;not null" json:"seq"`
	Turn      int            `json:"turn"`
	Character string         `gorm:"size:64" json:"character"`
	Kind      string         `gorm:"size:32;not null;index:idx_battlelog_kind" json:"kind"`
	Message   string         `gorm:"type:text" json:"message"`
	Fields    datatypes.JSON `json:"fields"`
	CreatedAt time.Time      `gorm:"index:idx_battlelog_created;autoCreateTime:milli" json:"created_at"`
}

// BattleSummary is one row per finished battle.
type BattleSummary struct {
	BattleID  string    `gorm:"primaryKey;size:36" json:"battle_id"`
	Winner    string    `gorm:"size:64" json:"winner"`
	Draw      bool      `json:"draw"`
	Turns     int       `json:"turns"`
	Entries   int64     `json:"entries"`
	CreatedAt time.Time `gorm:"autoCreateTime:milli" json:"created_at"`
}
