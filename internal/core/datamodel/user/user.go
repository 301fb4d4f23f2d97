package user

import "time"

// User is the users table row. It is read with sqlx and migrated by goose.
type User struct {
	ID           string    `db:"id" gorm:"primaryKey;type:varchar(64)"`
	Email        string    `db:"email" gorm:"column:email;uniqueIndex;not null"`
	Name         string    `db:"name" gorm:"column:name;not null"`
	Role         string    `db:"role" gorm:"column:role;not null"`
	Department   string    `db:"department" gorm:"column:department"`
	Avatar       string    `db:"avatar" gorm:"column:avatar"`
	PasswordHash string    `db:"password_hash" gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `db:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `db:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}
