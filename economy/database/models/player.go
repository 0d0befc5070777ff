package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Username  string    `bun:"username,notnull,unique"`
	Email     string    `bun:"email,notnull,unique"`
	IsActive  bool      `bun:"is_active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastLogin time.Time `bun:"last_login,nullzero"`
}
