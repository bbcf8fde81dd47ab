package models

import (
	"time"

	"gorm.io/datatypes"
)

// Player is the identity record for one roster player. ID is the roster
// source's stable identifier and the join key for every other table.
type Player struct {
	ID        string    `gorm:"primaryKey;size:32" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Position  string    `gorm:"column:pos;size:8;not null;index" json:"pos"`
	Team      string    `gorm:"size:8" json:"team"`
	AgeYears  *float64  `json:"age_years"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Player) TableName() string {
	return "players"
}

// ADPSnapshot is one source's draft-position opinion of a player on a date.
type ADPSnapshot struct {
	AsOfDate  time.Time      `gorm:"primaryKey" json:"as_of_date"`
	Source    string         `gorm:"primaryKey;size:32" json:"source"`
	PlayerID  string         `gorm:"primaryKey;size:32" json:"player_id"`
	RawValue  float64        `gorm:"not null" json:"raw_value"`
	Meta      datatypes.JSON `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (ADPSnapshot) TableName() string {
	return "adp_snapshots"
}

// ValueDaily is the computed valuation snapshot for one player on one date.
// A nil DynastyValue means the value could not be computed.
type ValueDaily struct {
	AsOfDate        time.Time `gorm:"primaryKey;index" json:"as_of_date"`
	PlayerID        string    `gorm:"primaryKey;size:32" json:"player_id"`
	MarketValue     *float64  `json:"market_value"`
	ProjectionScore *float64  `json:"projection_score"`
	AgeScore        *float64  `json:"age_score"`
	RiskScore       *float64  `json:"risk_score"`
	DynastyValue    *float64  `gorm:"index" json:"dynasty_value"`
	Trend7d         *float64  `gorm:"column:trend_7d" json:"trend_7d"`
	Trend30d        *float64  `gorm:"column:trend_30d" json:"trend_30d"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Player *Player `gorm:"foreignKey:PlayerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"player,omitempty"`
}

func (ValueDaily) TableName() string {
	return "value_daily"
}

// All lists every model managed by migrations, parents first.
func All() []interface{} {
	return []interface{}{
		&Player{},
		&ADPSnapshot{},
		&ValueDaily{},
	}
}
