package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Strategy types.
const (
	StrategyMomentum       = "MOMENTUM"
	StrategyMeanReversion  = "MEAN_REVERSION"
	StrategyBreakout       = "BREAKOUT"
	StrategyTrendFollowing = "TREND_FOLLOWING"
	StrategyCustom         = "CUSTOM"
)

// ParamMap holds per-strategy tuning parameters, persisted as a JSON blob.
// Values are numeric but arrive as arbitrary JSON, so coercion happens at
// read time in the evaluator.
type ParamMap map[string]any

// Value implements driver.Valuer.
func (p ParamMap) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *ParamMap) Scan(value any) error {
	if value == nil {
		*p = ParamMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported parameters column type %T", value)
	}
	return json.Unmarshal(data, p)
}

// Strategy is a user-owned trading strategy definition. It is immutable
// during a single evaluation.
type Strategy struct {
	ID          uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Type        string    `gorm:"not null" json:"strategy_type"`
	Parameters  ParamMap  `gorm:"type:text" json:"parameters"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	User        User      `json:"-"`
	IsActive    bool      `gorm:"default:false" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (s *Strategy) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
