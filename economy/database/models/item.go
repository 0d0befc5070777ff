package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

type Item struct {
	bun.BaseModel `bun:"table:items,alias:i"`

	ID          int64           `bun:"id,pk,autoincrement"`
	Name        string          `bun:"name,notnull"`
	Description string          `bun:"description"`
	IsTradeable bool            `bun:"is_tradeable,notnull,default:true"`
	IsStackable bool            `bun:"is_stackable,notnull,default:false"`
	BaseValue   decimal.Decimal `bun:"base_value,notnull,type:numeric(10,2)"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp"`
}
